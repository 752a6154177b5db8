package main

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/alkholigroup2020/stock-management-system-sub004/models"
	"github.com/alkholigroup2020/stock-management-system-sub004/utils"
	"github.com/alkholigroup2020/stock-management-system-sub004/workflow"
	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

// respondError maps domain errors to HTTP statuses. Rule violations carry
// their structured message; anything unrecognized is a 500 with the detail
// kept server-side.
func respondError(c *gin.Context, err error) {
	var (
		insufficientStock  *models.InsufficientStockError
		periodLocked       *models.PeriodLockedError
		invalidPair        *models.InvalidLocationPairError
		reconIncomplete    *models.ReconciliationIncompleteError
		closingMissing     *models.ClosingValueMissingError
		locationsNotReady  *models.LocationsNotReadyError
		approvalExists     *models.ApprovalAlreadyExistsError
		approvalNotPending *models.ApprovalNotPendingError
		invalidTransition  *models.InvalidPeriodTransitionError
		concurrentUpdate   *models.ConcurrentUpdateError
		validationErrs     validator.ValidationErrors
	)

	switch {
	case errors.As(err, &validationErrs):
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": utils.ProcessValidationErrors(err)})
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.As(err, &insufficientStock),
		errors.As(err, &invalidPair),
		errors.As(err, &reconIncomplete),
		errors.As(err, &closingMissing),
		errors.As(err, &locationsNotReady),
		errors.As(err, &invalidTransition):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.As(err, &periodLocked),
		errors.As(err, &approvalExists),
		errors.As(err, &approvalNotPending),
		errors.As(err, &concurrentUpdate),
		errors.Is(err, workflow.ErrDuplicateRequest),
		errors.Is(err, workflow.ErrIdempotencyInProgress):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func pathInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Param(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

func queryInt(c *gin.Context, name string) (int, bool) {
	v, err := strconv.Atoi(c.Query(name))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return v, true
}

func createLocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewLocation
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		location, err := models.CreateLocation(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, location)
	}
}

func getLocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathInt(c, "id")
		if !ok {
			return
		}
		location, err := models.GetLocation(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, location)
	}
}

func deactivateLocationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathInt(c, "id")
		if !ok {
			return
		}
		location, err := models.DeactivateLocation(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, location)
	}
}

func createItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input models.NewItem
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		item, err := models.CreateItem(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, item)
	}
}

func getItemHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := pathInt(c, "id")
		if !ok {
			return
		}
		item, err := models.GetItem(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, item)
	}
}

func postReceiptHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.NewReceipt
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		movement, err := workflow.PostReceipt(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, movement)
	}
}

func postConsumptionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.NewConsumption
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		movement, err := workflow.PostConsumption(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, movement)
	}
}

func postTransferHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.NewTransfer
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		outMovement, inMovement, err := workflow.PostTransfer(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, gin.H{"out": outMovement, "in": inMovement})
	}
}

func getStockPositionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		locationId, ok := queryInt(c, "location_id")
		if !ok {
			return
		}
		itemId, ok := queryInt(c, "item_id")
		if !ok {
			return
		}
		position, err := models.GetStockPosition(c.Request.Context(), locationId, itemId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, position)
	}
}

func listMovementsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		periodId, ok := queryInt(c, "period_id")
		if !ok {
			return
		}
		locationId, ok := queryInt(c, "location_id")
		if !ok {
			return
		}
		movements, err := models.ListMovements(c.Request.Context(), periodId, locationId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, movements)
	}
}

func createPeriodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var input workflow.NewPeriod
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		period, err := workflow.CreatePeriod(c.Request.Context(), &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, period)
	}
}

func getCurrentPeriodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		period, err := models.GetActivePeriod(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, period)
	}
}

func openPeriodHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		periodId, ok := pathInt(c, "id")
		if !ok {
			return
		}
		period, err := workflow.OpenPeriod(c.Request.Context(), periodId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, period)
	}
}

func markLocationReadyHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		periodId, ok := pathInt(c, "id")
		if !ok {
			return
		}
		locationId, ok := pathInt(c, "locationId")
		if !ok {
			return
		}
		state, err := workflow.MarkLocationReady(c.Request.Context(), periodId, locationId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, state)
	}
}

func computeReconciliationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		periodId, ok := pathInt(c, "id")
		if !ok {
			return
		}
		locationId, ok := pathInt(c, "locationId")
		if !ok {
			return
		}
		reconciliation, err := workflow.ComputeReconciliation(c.Request.Context(), periodId, locationId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, reconciliation)
	}
}

func saveReconciliationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		periodId, ok := pathInt(c, "id")
		if !ok {
			return
		}
		locationId, ok := pathInt(c, "locationId")
		if !ok {
			return
		}
		var input models.ReconciliationAdjustments
		if err := c.ShouldBindJSON(&input); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		reconciliation, err := workflow.SaveReconciliationAdjustments(c.Request.Context(), periodId, locationId, &input)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, reconciliation)
	}
}

func getReconciliationHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		periodId, ok := pathInt(c, "id")
		if !ok {
			return
		}
		locationId, ok := pathInt(c, "locationId")
		if !ok {
			return
		}
		reconciliation, err := models.GetReconciliation(c.Request.Context(), periodId, locationId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, reconciliation)
	}
}

func requestPeriodCloseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		periodId, ok := pathInt(c, "id")
		if !ok {
			return
		}
		approval, err := workflow.RequestPeriodClose(c.Request.Context(), periodId)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, approval)
	}
}

type approvalDecision struct {
	Comments string `json:"comments"`
}

func approvePeriodCloseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		approvalId, ok := pathInt(c, "id")
		if !ok {
			return
		}
		var input approvalDecision
		_ = c.ShouldBindJSON(&input)
		period, successor, err := workflow.ApprovePeriodClose(c.Request.Context(), approvalId, input.Comments)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"period": period, "successor_period": successor})
	}
}

func rejectPeriodCloseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		approvalId, ok := pathInt(c, "id")
		if !ok {
			return
		}
		var input approvalDecision
		_ = c.ShouldBindJSON(&input)
		period, err := workflow.RejectPeriodClose(c.Request.Context(), approvalId, input.Comments)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, period)
	}
}
