package handlers

import (
	"time"

	"github.com/bidnbuy/backend/auction"
	"github.com/bidnbuy/backend/database"
	"github.com/bidnbuy/backend/database/models"
	"github.com/bidnbuy/backend/database/repositories"
	"github.com/bidnbuy/backend/services"
	"github.com/bidnbuy/backend/utils"
	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// WebApp bundles everything the HTTP handlers need.
type WebApp struct {
	DB            *database.DB
	Manager       *auction.Manager
	Lots          repositories.LotRepository
	Bids          repositories.BidRepository
	Payments      repositories.PaymentRepository
	Users         repositories.UserRepository
	Notifications repositories.NotificationRepository
	Spaces        *services.SpacesService
}

func (a *WebApp) HealthCheck(c *fiber.Ctx) error {
	if err := a.DB.Ping(c.Context()); err != nil {
		return utils.SendError(c, fiber.StatusServiceUnavailable, "UNHEALTHY", "database unreachable", nil)
	}
	return utils.SendSuccess(c, fiber.Map{"status": "ok"}, "")
}

type lotResponse struct {
	ID           int64           `json:"id"`
	Title        string          `json:"title"`
	Description  string          `json:"description"`
	StartPrice   decimal.Decimal `json:"start_price"`
	CurrentPrice decimal.Decimal `json:"current_price"`
	MinStep      decimal.Decimal `json:"min_step"`
	Status       string          `json:"status"`
	ImageURL     string          `json:"image_url,omitempty"`
	Images       []string        `json:"images"`

	PaymentDeadline        *time.Time `json:"payment_deadline,omitempty"`
	PaymentDeadlineDays    int        `json:"payment_deadline_days"`
	PaymentDeadlineHours   int        `json:"payment_deadline_hours"`
	PaymentDeadlineMinutes int        `json:"payment_deadline_minutes"`

	SellerID  int64      `json:"seller_id"`
	ClosedAt  *time.Time `json:"closed_at,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
}

func toLotResponse(lot *models.Lot) lotResponse {
	images := make([]string, 0, len(lot.Images))
	for _, img := range lot.Images {
		images = append(images, img.ImageURL)
	}
	return lotResponse{
		ID:                     lot.ID,
		Title:                  lot.Title,
		Description:            lot.Description,
		StartPrice:             lot.StartPrice,
		CurrentPrice:           lot.CurrentPrice,
		MinStep:                lot.MinStep,
		Status:                 string(lot.Status),
		ImageURL:               lot.ImageURL,
		Images:                 images,
		PaymentDeadline:        lot.PaymentDeadline,
		PaymentDeadlineDays:    lot.PaymentDeadlineDays,
		PaymentDeadlineHours:   lot.PaymentDeadlineHours,
		PaymentDeadlineMinutes: lot.PaymentDeadlineMinutes,
		SellerID:               lot.SellerID,
		ClosedAt:               lot.ClosedAt,
		CreatedAt:              lot.CreatedAt,
	}
}

func toLotResponses(lots []*models.Lot) []lotResponse {
	out := make([]lotResponse, 0, len(lots))
	for _, lot := range lots {
		out = append(out, toLotResponse(lot))
	}
	return out
}

type bidResponse struct {
	ID        int64           `json:"id"`
	LotID     int64           `json:"lot_id"`
	UserID    int64           `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Timestamp time.Time       `json:"timestamp"`
	IsActive  bool            `json:"is_active"`

	Lot *lotResponse `json:"lot,omitempty"`
}

func toBidResponse(bid *models.Bid) bidResponse {
	resp := bidResponse{
		ID:        bid.ID,
		LotID:     bid.LotID,
		UserID:    bid.UserID,
		Amount:    bid.Amount,
		Timestamp: bid.Timestamp,
		IsActive:  bid.IsActive,
	}
	if bid.Lot != nil {
		lot := toLotResponse(bid.Lot)
		resp.Lot = &lot
	}
	return resp
}

func toBidResponses(bids []*models.Bid) []bidResponse {
	out := make([]bidResponse, 0, len(bids))
	for _, bid := range bids {
		out = append(out, toBidResponse(bid))
	}
	return out
}

type paymentResponse struct {
	ID        int64           `json:"id"`
	LotID     int64           `json:"lot_id"`
	UserID    int64           `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	CreatedAt time.Time       `json:"created_at"`
}

func toPaymentResponse(p *models.Payment) paymentResponse {
	return paymentResponse{
		ID:        p.ID,
		LotID:     p.LotID,
		UserID:    p.UserID,
		Amount:    p.Amount,
		CreatedAt: p.CreatedAt,
	}
}

type userResponse struct {
	ID          int64  `json:"id"`
	Email       string `json:"email"`
	Username    string `json:"username"`
	PhoneNumber string `json:"phone_number,omitempty"`
	Bio         string `json:"bio,omitempty"`
	IsAdmin     bool   `json:"is_admin"`

	IsBlocked bool       `json:"is_blocked"`
	BanReason string     `json:"ban_reason,omitempty"`
	BanUntil  *time.Time `json:"ban_until,omitempty"`
}

func toUserResponse(u *models.User) userResponse {
	return userResponse{
		ID:          u.ID,
		Email:       u.Email,
		Username:    u.Username,
		PhoneNumber: u.PhoneNumber,
		Bio:         u.Bio,
		IsAdmin:     u.IsAdmin,
		IsBlocked:   u.IsBlocked,
		BanReason:   u.BanReason,
		BanUntil:    u.BanUntil,
	}
}

type notificationResponse struct {
	ID        int64     `json:"id"`
	Message   string    `json:"message"`
	IsRead    bool      `json:"is_read"`
	CreatedAt time.Time `json:"created_at"`
}

func toNotificationResponses(ns []*models.Notification) []notificationResponse {
	out := make([]notificationResponse, 0, len(ns))
	for _, n := range ns {
		out = append(out, notificationResponse{
			ID:        n.ID,
			Message:   n.Message,
			IsRead:    n.IsRead,
			CreatedAt: n.CreatedAt,
		})
	}
	return out
}

func lotIDParam(c *fiber.Ctx) (int64, error) {
	id, err := c.ParamsInt("id")
	if err != nil || id <= 0 {
		return 0, fiber.NewError(fiber.StatusBadRequest, "invalid lot id")
	}
	return int64(id), nil
}
