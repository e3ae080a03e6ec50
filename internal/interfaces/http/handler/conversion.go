package handler

import (
	"maps"
	"net/http"
	"reflect"
	"strconv"
	"time"

	"github.com/erp/conversion/internal/domain/conversion"
	infra "github.com/erp/conversion/internal/infrastructure/conversion"
	"github.com/erp/conversion/internal/infrastructure/logger"
	"github.com/erp/conversion/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// History listing limits
const (
	DefaultHistoryLimit = 20
	MaxHistoryLimit     = 100
)

// CatalogInspector exposes the contents of a converter catalog
type CatalogInspector interface {
	Entries() []infra.Entry
	Stats() infra.Stats
	MaxNestingDepth() int
}

// ValueConverter converts a value into a runtime type
type ValueConverter interface {
	ConvertTo(value any, target reflect.Type, hints conversion.Hints) (any, error)
}

// TypeDirectory resolves the target type names accepted by the API
type TypeDirectory interface {
	conversion.TypeResolver
	Names() []string
}

// ConversionHandler serves the conversion endpoints
type ConversionHandler struct {
	BaseHandler
	catalog   CatalogInspector
	converter ValueConverter
	types     TypeDirectory
	history   conversion.HistoryRepository
}

// ConversionHandlerOption configures a ConversionHandler
type ConversionHandlerOption func(*ConversionHandler)

// WithHistory records every conversion in repo and serves GET /history from it
func WithHistory(repo conversion.HistoryRepository) ConversionHandlerOption {
	return func(h *ConversionHandler) {
		h.history = repo
	}
}

// NewConversionHandler creates a new ConversionHandler
func NewConversionHandler(catalog CatalogInspector, converter ValueConverter, types TypeDirectory, opts ...ConversionHandlerOption) *ConversionHandler {
	h := &ConversionHandler{
		catalog:   catalog,
		converter: converter,
		types:     types,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// RegisterRoutes mounts the conversion endpoints under /system/conversions
func (h *ConversionHandler) RegisterRoutes(rg *gin.RouterGroup) {
	group := rg.Group("/system/conversions")
	group.GET("", h.ListCatalog)
	group.GET("/types", h.ListTypes)
	group.POST("/convert", h.Convert)
	if h.history != nil {
		group.GET("/history", h.History)
	}
}

// ListCatalog godoc
// @ID           listConversionCatalog
// @Summary      List the converter catalog
// @Description  Returns the stored converters, original and synthetic, with catalog counters
// @Tags         conversions
// @Produce      json
// @Success      200 {object} APIResponse[dto.CatalogResponse]
// @Router       /system/conversions [get]
func (h *ConversionHandler) ListCatalog(c *gin.Context) {
	entries := h.catalog.Entries()
	stats := h.catalog.Stats()

	resp := dto.CatalogResponse{
		Stats: dto.CatalogStats{
			Originals:       stats.Originals,
			Synthetic:       stats.Synthetic,
			Negative:        stats.Negative,
			Factories:       stats.Factories,
			MaxNestingDepth: h.catalog.MaxNestingDepth(),
		},
		Entries: make([]dto.ConverterEntry, 0, len(entries)),
	}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, toConverterEntry(e))
	}
	h.Success(c, resp)
}

// ListTypes godoc
// @ID           listConversionTypes
// @Summary      List target type names
// @Description  Returns the type names accepted as conversion targets
// @Tags         conversions
// @Produce      json
// @Success      200 {object} APIResponse[dto.TypesResponse]
// @Router       /system/conversions/types [get]
func (h *ConversionHandler) ListTypes(c *gin.Context) {
	h.Success(c, dto.TypesResponse{Names: h.types.Names()})
}

// Convert godoc
// @ID           convertValue
// @Summary      Convert a value
// @Description  Converts the posted value into the named target type
// @Tags         conversions
// @Accept       json
// @Produce      json
// @Param        request body dto.ConvertRequest true "Value and target type"
// @Success      200 {object} APIResponse[dto.ConvertResponse]
// @Failure      400 {object} ErrorResponse
// @Failure      422 {object} ErrorResponse
// @Router       /system/conversions/convert [post]
func (h *ConversionHandler) Convert(c *gin.Context) {
	var req dto.ConvertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.ValidationError(c, err)
		return
	}

	target, ok := h.types.ResolveType(req.Target)
	if !ok {
		h.Error(c, http.StatusBadRequest, dto.ErrCodeUnknownType, "unknown target type '"+req.Target+"'")
		return
	}

	hints := make(conversion.Hints, len(req.Hints)+1)
	maps.Copy(hints, req.Hints)
	// type names in the payload resolve against the API's directory only
	hints[conversion.HintClassLoader] = h.types

	source := typeName(reflect.TypeOf(req.Value))
	started := time.Now()
	out, err := h.converter.ConvertTo(req.Value, target, hints)
	h.record(c, source, target.String(), time.Since(started), err)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, dto.ConvertResponse{
		Value:      renderValue(out),
		SourceType: source,
		TargetType: target.String(),
	})
}

// record stores the outcome of a conversion; a storage failure never fails the request
func (h *ConversionHandler) record(c *gin.Context, source, target string, elapsed time.Duration, convErr error) {
	if h.history == nil {
		return
	}
	entry := conversion.NewHistoryEntry(getRequestID(c), source, target, elapsed, convErr)
	if err := h.history.Save(c.Request.Context(), entry); err != nil {
		logger.RequestLogger(c).Warn("Failed to record conversion",
			zap.String("target_type", target),
			zap.Error(err),
		)
	}
}

// History godoc
// @ID           listConversionHistory
// @Summary      List recent conversions
// @Description  Returns the most recent conversions, newest first
// @Tags         conversions
// @Produce      json
// @Param        limit query int false "Maximum number of entries" default(20) maximum(100)
// @Success      200 {object} APIResponse[dto.HistoryResponse]
// @Failure      400 {object} ErrorResponse
// @Router       /system/conversions/history [get]
func (h *ConversionHandler) History(c *gin.Context) {
	limit := DefaultHistoryLimit
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 || n > MaxHistoryLimit {
			h.BadRequest(c, "limit must be between 1 and "+strconv.Itoa(MaxHistoryLimit))
			return
		}
		limit = n
	}

	entries, err := h.history.Recent(c.Request.Context(), limit)
	if err != nil {
		_ = c.Error(err)
		h.InternalError(c, "failed to load conversion history")
		return
	}

	resp := dto.HistoryResponse{Entries: make([]dto.HistoryEntry, 0, len(entries))}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, toHistoryEntry(e))
	}
	h.Success(c, resp)
}

func toHistoryEntry(e conversion.HistoryEntry) dto.HistoryEntry {
	entry := dto.HistoryEntry{
		ID:         e.ID,
		SourceType: e.SourceType,
		TargetType: e.TargetType,
		Outcome:    e.Outcome,
		Error:      e.Error,
		Elapsed:    e.Elapsed.String(),
		RecordedAt: e.RecordedAt.UTC().Format(time.RFC3339Nano),
	}
	if e.RequestID != uuid.Nil {
		entry.RequestID = e.RequestID.String()
	}
	return entry
}

func toConverterEntry(e infra.Entry) dto.ConverterEntry {
	entry := dto.ConverterEntry{
		Type:               e.Type.String(),
		Source:             typeName(e.Type.Source),
		Target:             typeName(e.Type.Target),
		Synthetic:          e.Synthetic,
		NestingDepth:       e.NestingDepth,
		Priority:           e.Priority,
		PossibleDistortion: e.PossibleDistortion,
		FailOnError:        e.FailOnError,
	}
	for _, dep := range e.DependsOn {
		entry.DependsOn = append(entry.DependsOn, dep.String())
	}
	return entry
}

// renderValue makes converted values JSON friendly
func renderValue(v any) any {
	if t, ok := v.(reflect.Type); ok {
		return t.String()
	}
	return v
}

func typeName(t reflect.Type) string {
	if t == nil {
		return "nil"
	}
	return t.String()
}
