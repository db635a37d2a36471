package handlers

import (
	"errors"
	"strings"

	"github.com/bidnbuy/backend/auction"
	"github.com/bidnbuy/backend/database/models"
	"github.com/bidnbuy/backend/database/repositories"
	"github.com/bidnbuy/backend/middleware"
	"github.com/bidnbuy/backend/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// ListLots returns lots visible to everyone, optionally filtered by status.
func (a *WebApp) ListLots(c *fiber.Ctx) error {
	var statuses []models.LotStatus
	if raw := c.Query("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			statuses = append(statuses, models.LotStatus(strings.TrimSpace(s)))
		}
	}

	limit := c.QueryInt("limit", 50)
	offset := c.QueryInt("offset", 0)

	lots, err := a.Lots.List(c.Context(), statuses, limit, offset)
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, toLotResponses(lots), "")
}

// MyLots returns the caller's own listings.
func (a *WebApp) MyLots(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	lots, err := a.Lots.ListBySeller(c.Context(), user.ID)
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, toLotResponses(lots), "")
}

func (a *WebApp) GetLot(c *fiber.Ctx) error {
	id, err := lotIDParam(c)
	if err != nil {
		return err
	}

	lot, err := a.Lots.GetByID(c.Context(), id)
	if errors.Is(err, repositories.ErrLotNotFound) {
		return utils.SendNotFound(c, "Lot not found")
	}
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, toLotResponse(lot), "")
}

type createLotForm struct {
	Title                  string `form:"title"`
	Description            string `form:"description"`
	StartPrice             string `form:"start_price"`
	MinStep                string `form:"min_step"`
	PaymentDeadlineDays    int    `form:"payment_deadline_days"`
	PaymentDeadlineHours   int    `form:"payment_deadline_hours"`
	PaymentDeadlineMinutes int    `form:"payment_deadline_minutes"`
}

// CreateLot creates a listing from a multipart form, uploading any attached
// images first.
func (a *WebApp) CreateLot(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	var form createLotForm
	if err := c.BodyParser(&form); err != nil {
		return utils.SendBadRequest(c, "Invalid form data", nil)
	}

	startPrice, err := decimal.NewFromString(form.StartPrice)
	if err != nil {
		return utils.SendBadRequest(c, "Invalid start price", nil)
	}
	minStep, err := decimal.NewFromString(form.MinStep)
	if err != nil {
		return utils.SendBadRequest(c, "Invalid minimum step", nil)
	}

	urls, err := a.uploadFormImages(c)
	if err != nil {
		return err
	}

	in := auction.LotInput{
		Title:                  form.Title,
		Description:            form.Description,
		StartPrice:             startPrice,
		MinStep:                minStep,
		PaymentDeadlineDays:    form.PaymentDeadlineDays,
		PaymentDeadlineHours:   form.PaymentDeadlineHours,
		PaymentDeadlineMinutes: form.PaymentDeadlineMinutes,
	}
	if len(urls) > 0 {
		in.ImageURL = urls[0]
	}

	lot, err := a.Manager.CreateLot(c.Context(), user, in)
	if err != nil {
		return err
	}

	for _, url := range urls {
		if _, err := a.Manager.AddImage(c.Context(), lot.ID, user, url); err != nil {
			return err
		}
	}

	created, err := a.Lots.GetByID(c.Context(), lot.ID)
	if err != nil {
		return err
	}
	return utils.SendCreated(c, toLotResponse(created), "Lot created")
}

func (a *WebApp) uploadFormImages(c *fiber.Ctx) ([]string, error) {
	form, err := c.MultipartForm()
	if err != nil || form == nil {
		return nil, nil
	}
	files := form.File["images"]
	if len(files) == 0 {
		return nil, nil
	}
	if len(files) > models.MaxLotImages {
		return nil, fiber.NewError(fiber.StatusBadRequest, "too many images")
	}
	if a.Spaces == nil {
		return nil, fiber.NewError(fiber.StatusBadRequest, "image storage is not configured")
	}

	var urls []string
	for _, file := range files {
		src, err := file.Open()
		if err != nil {
			return nil, fiber.NewError(fiber.StatusBadRequest, "unreadable image")
		}
		url, err := a.Spaces.UploadImage(c.Context(), src, file.Header.Get("Content-Type"))
		src.Close()
		if err != nil {
			return nil, err
		}
		urls = append(urls, url)
	}
	return urls, nil
}

type updateLotBody struct {
	Title                  *string          `json:"title"`
	Description            *string          `json:"description"`
	StartPrice             *decimal.Decimal `json:"start_price"`
	MinStep                *decimal.Decimal `json:"min_step"`
	PaymentDeadlineDays    *int             `json:"payment_deadline_days"`
	PaymentDeadlineHours   *int             `json:"payment_deadline_hours"`
	PaymentDeadlineMinutes *int             `json:"payment_deadline_minutes"`
	ImageURL               *string          `json:"image_url"`
}

// UpdateLot applies a partial edit to an unbid lot.
func (a *WebApp) UpdateLot(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := lotIDParam(c)
	if err != nil {
		return err
	}

	var body updateLotBody
	if err := c.BodyParser(&body); err != nil {
		return utils.SendBadRequest(c, "Invalid request body", nil)
	}

	lot, err := a.Manager.Update(c.Context(), id, user, auction.LotPatch{
		Title:                  body.Title,
		Description:            body.Description,
		StartPrice:             body.StartPrice,
		MinStep:                body.MinStep,
		PaymentDeadlineDays:    body.PaymentDeadlineDays,
		PaymentDeadlineHours:   body.PaymentDeadlineHours,
		PaymentDeadlineMinutes: body.PaymentDeadlineMinutes,
		ImageURL:               body.ImageURL,
	})
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, toLotResponse(lot), "Lot updated")
}

// CloseLot ends bidding on the caller's lot.
func (a *WebApp) CloseLot(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := lotIDParam(c)
	if err != nil {
		return err
	}

	lot, err := a.Manager.Close(c.Context(), id, user)
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, toLotResponse(lot), "Lot closed")
}

// RestoreLot puts an unsold closed lot back on the market.
func (a *WebApp) RestoreLot(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := lotIDParam(c)
	if err != nil {
		return err
	}

	lot, err := a.Manager.Restore(c.Context(), id, user)
	if err != nil {
		return err
	}
	return utils.SendSuccess(c, toLotResponse(lot), "Lot restored")
}

// DeleteLot removes a lot and its images.
func (a *WebApp) DeleteLot(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := lotIDParam(c)
	if err != nil {
		return err
	}

	if err := a.Manager.Delete(c.Context(), id, user); err != nil {
		return err
	}
	return utils.SendNoContent(c)
}

// AddLotImage uploads one more image for a lot.
func (a *WebApp) AddLotImage(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)

	id, err := lotIDParam(c)
	if err != nil {
		return err
	}

	file, err := c.FormFile("image")
	if err != nil {
		return utils.SendBadRequest(c, "Image file is required", nil)
	}
	if a.Spaces == nil {
		return utils.SendBadRequest(c, "Image storage is not configured", nil)
	}

	src, err := file.Open()
	if err != nil {
		return utils.SendBadRequest(c, "Unreadable image", nil)
	}
	defer src.Close()

	url, err := a.Spaces.UploadImage(c.Context(), src, file.Header.Get("Content-Type"))
	if err != nil {
		return err
	}

	image, err := a.Manager.AddImage(c.Context(), id, user, url)
	if err != nil {
		return err
	}
	return utils.SendCreated(c, fiber.Map{"id": image.ID, "image_url": image.ImageURL}, "Image added")
}
