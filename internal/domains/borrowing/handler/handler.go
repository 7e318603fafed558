package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"library-backend/internal/domains/borrowing/model"
	"library-backend/internal/domains/borrowing/service"
	"library-backend/internal/shared/middleware"
	"library-backend/internal/shared/response"
)

// BorrowingHandler handles HTTP requests for borrowings
type BorrowingHandler struct {
	borrowingService service.ServiceInterface
}

// NewBorrowingHandler creates a new borrowing handler
func NewBorrowingHandler(borrowingService service.ServiceInterface) *BorrowingHandler {
	return &BorrowingHandler{
		borrowingService: borrowingService,
	}
}

// =====================================================
// ROUTES REGISTRATION
// =====================================================

// RegisterRoutes registers all borrowing routes. auth must run before admin.
func (h *BorrowingHandler) RegisterRoutes(router *gin.RouterGroup, auth, admin gin.HandlerFunc) {
	borrowings := router.Group("/borrowings")
	{
		// Public
		borrowings.GET("/availability/:bookId", h.GetAvailability) // GET /v1/borrowings/availability/:bookId
		borrowings.GET("/book/:bookId", h.ListBookBorrowings)      // GET /v1/borrowings/book/:bookId

		// User
		borrowings.POST("", auth, h.CreateBorrowing)           // POST /v1/borrowings
		borrowings.GET("/my", auth, h.ListMyBorrowings)        // GET /v1/borrowings/my
		borrowings.GET("/:id", auth, h.GetBorrowing)           // GET /v1/borrowings/:id
		borrowings.PUT("/:id/cancel", auth, h.CancelBorrowing) // PUT /v1/borrowings/:id/cancel

		// Admin
		borrowings.GET("", auth, admin, h.ListAllBorrowings)            // GET /v1/borrowings?status=pending&book_id=...
		borrowings.PUT("/:id/decision", auth, admin, h.DecideBorrowing) // PUT /v1/borrowings/:id/decision
		borrowings.PUT("/:id/return", auth, admin, h.ReturnBorrowing)   // PUT /v1/borrowings/:id/return
	}
}

// =====================================================
// CREATE BORROWING
// =====================================================

// CreateBorrowing godoc
// @Summary Request a book for a date range
// @Tags Borrowings
// @Accept json
// @Produce json
// @Param request body model.CreateBorrowingRequest true "Create borrowing request"
// @Success 201 {object} response.Response{data=model.BorrowingResponse}
// @Failure 400 {object} response.Response
// @Failure 404 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /v1/borrowings [post]
func (h *BorrowingHandler) CreateBorrowing(c *gin.Context) {
	// Step 1: Authenticated user
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	// Step 2: Bind and validate
	var req model.CreateBorrowingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeInvalidRequest, err.Error())
		return
	}
	interval, err := req.Interval()
	if err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeInvalidRequest, err.Error())
		return
	}

	// Step 3: Call service
	borrowing, err := h.borrowingService.CreateBorrowing(c.Request.Context(), userID, req.BookID, interval)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusCreated, "Borrowing request created", model.ToResponse(borrowing))
}

// =====================================================
// QUERIES
// =====================================================

// ListMyBorrowings returns the caller's borrowings, newest first
func (h *BorrowingHandler) ListMyBorrowings(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	list, err := h.borrowingService.ListUserBorrowings(c.Request.Context(), userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Borrowings retrieved successfully", model.ToResponses(list))
}

// GetBorrowing returns one borrowing. Users only see their own.
func (h *BorrowingHandler) GetBorrowing(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	borrowing, err := h.borrowingService.GetBorrowing(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	if borrowing.UserID != userID && !middleware.IsAdmin(c) {
		// Do not reveal other users' borrowings
		h.handleServiceError(c, model.NewBorrowingNotFoundError())
		return
	}

	response.Success(c, http.StatusOK, "Borrowing retrieved successfully", model.ToResponse(borrowing))
}

// ListBookBorrowings returns the active bookings of a book ascending by start date
func (h *BorrowingHandler) ListBookBorrowings(c *gin.Context) {
	bookID, ok := parseUUIDParam(c, "bookId")
	if !ok {
		return
	}

	list, err := h.borrowingService.ListBookingsForBook(c.Request.Context(), bookID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Bookings retrieved successfully", model.ToResponses(list))
}

// GetAvailability godoc
// @Summary Availability of a book today and the next free date
// @Tags Borrowings
// @Produce json
// @Param bookId path string true "Book ID (UUID)"
// @Success 200 {object} response.Response{data=model.AvailabilityResponse}
// @Failure 404 {object} response.Response
// @Router /v1/borrowings/availability/{bookId} [get]
func (h *BorrowingHandler) GetAvailability(c *gin.Context) {
	bookID, ok := parseUUIDParam(c, "bookId")
	if !ok {
		return
	}

	availability, err := h.borrowingService.GetAvailability(c.Request.Context(), bookID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Availability retrieved successfully", availability)
}

// ListAllBorrowings is the admin list with typed filters
// (user_id, book_id, status, active_on, from, to, order, page, limit)
func (h *BorrowingHandler) ListAllBorrowings(c *gin.Context) {
	var req model.ListBorrowingsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	q, err := req.ToQuery()
	if err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeInvalidRequest, err.Error())
		return
	}

	list, total, err := h.borrowingService.ListBorrowings(c.Request.Context(), q)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.SuccessWithMeta(c, http.StatusOK, "Borrowings retrieved successfully", model.ToResponses(list), &response.Meta{
		Page:  q.Page,
		Limit: q.Limit,
		Total: total,
	})
}

// =====================================================
// TRANSITIONS
// =====================================================

// DecideBorrowing godoc
// @Summary Approve or reject a pending borrowing (admin)
// @Tags Borrowings
// @Accept json
// @Produce json
// @Param id path string true "Borrowing ID (UUID)"
// @Param request body model.DecideBorrowingRequest true "Decision"
// @Success 200 {object} response.Response{data=model.BorrowingResponse}
// @Failure 409 {object} response.Response
// @Failure 422 {object} response.Response
// @Router /v1/borrowings/{id}/decision [put]
func (h *BorrowingHandler) DecideBorrowing(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	var req model.DecideBorrowingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	if err := req.Validate(); err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeInvalidRequest, err.Error())
		return
	}

	borrowing, err := h.borrowingService.DecideBorrowing(c.Request.Context(), id, req.Decision, req.AdminNote)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Borrowing decided", model.ToResponse(borrowing))
}

// ReturnBorrowing marks an active loan as returned (admin)
func (h *BorrowingHandler) ReturnBorrowing(c *gin.Context) {
	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	borrowing, err := h.borrowingService.ReturnBorrowing(c.Request.Context(), id)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Book returned", model.ToResponse(borrowing))
}

// CancelBorrowing lets the owner withdraw a pending request
func (h *BorrowingHandler) CancelBorrowing(c *gin.Context) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "Unauthorized")
		return
	}

	id, ok := parseUUIDParam(c, "id")
	if !ok {
		return
	}

	borrowing, err := h.borrowingService.CancelBorrowing(c.Request.Context(), id, userID)
	if err != nil {
		h.handleServiceError(c, err)
		return
	}

	response.Success(c, http.StatusOK, "Borrowing cancelled", model.ToResponse(borrowing))
}

// =====================================================
// HELPERS
// =====================================================

func parseUUIDParam(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil {
		response.ErrorResponse(c, http.StatusBadRequest, model.ErrCodeInvalidRequest, "invalid "+name)
		return uuid.Nil, false
	}
	return id, true
}

func (h *BorrowingHandler) handleServiceError(c *gin.Context, err error) {
	status, code := model.HTTPStatus(err)

	if status == http.StatusInternalServerError {
		log.Error().
			Err(err).
			Str("request_id", c.GetString("request_id")).
			Str("path", c.FullPath()).
			Msg("Borrowing request failed")
		response.InternalServerError(c, "Internal server error")
		return
	}

	response.ErrorResponse(c, status, code, err.Error())
}
