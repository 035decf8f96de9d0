package ginserver

import (
	"log/slog"
	"net/http"
	"strings"

	gin "github.com/gin-gonic/gin"

	"reservations/internal/app/commands"
	"reservations/internal/app/dto"
	listingapp "reservations/internal/app/handlers/listings"
)

type HostListingHandler struct {
	Commands commands.Bus
	Logger   *slog.Logger
}

type hostListingRequest struct {
	ID               string `json:"id"`
	Title            string `json:"title"`
	UnitType         string `json:"unit_type"`
	AvailabilityMode string `json:"availability_mode"`
	Currency         string `json:"currency"`
}

type pricingOptionRequest struct {
	ID           string `json:"id"`
	UnitType     string `json:"unit_type"`
	Duration     int    `json:"duration"`
	Price        int64  `json:"price"`
	MinimumUnits int    `json:"minimum_units"`
	IsDefault    bool   `json:"is_default"`
}

type specialPricingRequest struct {
	ID              string `json:"id"`
	PricingOptionID string `json:"pricing_option_id"`
	Kind            string `json:"kind"`
	Date            string `json:"date"`
	DayOfWeek       string `json:"day_of_week"`
	ValidFrom       string `json:"valid_from"`
	ValidUntil      string `json:"valid_until"`
	Price           int64  `json:"price"`
	Reason          string `json:"reason"`
}

type slotRequest struct {
	ID          string `json:"id"`
	Start       string `json:"start"`
	End         string `json:"end"`
	IsAvailable *bool  `json:"is_available"`
}

type blockRequest struct {
	ID     string `json:"id"`
	Start  string `json:"start"`
	End    string `json:"end"`
	Reason string `json:"reason"`
}

type dayFlagsRequest struct {
	Dates       []string `json:"dates"`
	IsAvailable bool     `json:"is_available"`
}

func (h HostListingHandler) Create(c *gin.Context) {
	var req hostListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := listingapp.CreateListingCommand{
		ListingID:        strings.TrimSpace(req.ID),
		HostID:           hostID(c),
		Title:            req.Title,
		UnitType:         req.UnitType,
		AvailabilityMode: req.AvailabilityMode,
		Currency:         req.Currency,
	}
	result, err := commands.Dispatch[listingapp.CreateListingCommand, *dto.Listing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.Header("Location", "/api/v1/listings/"+result.ID)
	c.JSON(http.StatusCreated, result)
}

func (h HostListingHandler) Update(c *gin.Context) {
	var req hostListingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := listingapp.UpdateListingCommand{
		ListingID:        c.Param("id"),
		HostID:           hostID(c),
		Title:            req.Title,
		UnitType:         req.UnitType,
		AvailabilityMode: req.AvailabilityMode,
	}
	result, err := commands.Dispatch[listingapp.UpdateListingCommand, *listingapp.UpdateListingResult](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostListingHandler) AddPricingOption(c *gin.Context) {
	var req pricingOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := listingapp.AddPricingOptionCommand{
		ListingID:    c.Param("id"),
		HostID:       hostID(c),
		OptionID:     req.ID,
		UnitType:     req.UnitType,
		Duration:     req.Duration,
		PriceMinor:   req.Price,
		MinimumUnits: req.MinimumUnits,
		IsDefault:    req.IsDefault,
	}
	result, err := commands.Dispatch[listingapp.AddPricingOptionCommand, *dto.PricingOption](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h HostListingHandler) UpsertSpecialPricing(c *gin.Context) {
	var req specialPricingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := listingapp.UpsertSpecialPricingCommand{
		ListingID:  c.Param("id"),
		HostID:     hostID(c),
		SpecialID:  req.ID,
		OptionID:   req.PricingOptionID,
		Kind:       req.Kind,
		Date:       req.Date,
		DayOfWeek:  req.DayOfWeek,
		ValidFrom:  req.ValidFrom,
		ValidUntil: req.ValidUntil,
		PriceMinor: req.Price,
		Reason:     req.Reason,
	}
	result, err := commands.Dispatch[listingapp.UpsertSpecialPricingCommand, *dto.SpecialPricing](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (h HostListingHandler) AddSlot(c *gin.Context) {
	var req slotRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	w, err := parseWindow(req.Start, req.End, "")
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	available := true
	if req.IsAvailable != nil {
		available = *req.IsAvailable
	}
	cmd := listingapp.AddSlotCommand{
		ListingID:   c.Param("id"),
		HostID:      hostID(c),
		SlotID:      req.ID,
		Start:       w.Start,
		End:         w.End,
		IsAvailable: available,
	}
	result, err := commands.Dispatch[listingapp.AddSlotCommand, *dto.Slot](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h HostListingHandler) RemoveSlot(c *gin.Context) {
	cmd := listingapp.RemoveSlotCommand{ListingID: c.Param("id"), HostID: hostID(c), SlotID: c.Param("slotId")}
	if _, err := commands.Dispatch[listingapp.RemoveSlotCommand, *struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HostListingHandler) BlockDates(c *gin.Context) {
	var req blockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	w, err := parseWindow(req.Start, req.End, "")
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	cmd := listingapp.BlockDatesCommand{
		ListingID: c.Param("id"),
		HostID:    hostID(c),
		BlockID:   req.ID,
		Start:     w.Start,
		End:       w.End,
		Reason:    req.Reason,
	}
	result, err := commands.Dispatch[listingapp.BlockDatesCommand, *dto.BlockedDate](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusCreated, result)
}

func (h HostListingHandler) UnblockDates(c *gin.Context) {
	cmd := listingapp.UnblockDatesCommand{ListingID: c.Param("id"), HostID: hostID(c), BlockID: c.Param("blockId")}
	if _, err := commands.Dispatch[listingapp.UnblockDatesCommand, *struct{}](c.Request.Context(), h.Commands, cmd); err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h HostListingHandler) SetDayFlags(c *gin.Context) {
	var req dayFlagsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	cmd := listingapp.SetDayFlagsCommand{
		ListingID:   c.Param("id"),
		HostID:      hostID(c),
		Dates:       req.Dates,
		IsAvailable: req.IsAvailable,
	}
	result, err := commands.Dispatch[listingapp.SetDayFlagsCommand, []dto.DayFlag](c.Request.Context(), h.Commands, cmd)
	if err != nil {
		writeError(c, h.Logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": result})
}

var _ HostListingHTTP = HostListingHandler{}
