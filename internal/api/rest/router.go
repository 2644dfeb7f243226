package rest

import (
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	app "trichoscope/internal/application"
	"trichoscope/internal/container"
	"trichoscope/internal/domain/entity"
)

// Ограничения элементов управления просмотром
const (
	minZoom        = 0.2
	maxZoom        = 5
	minBrushRadius = 1
	maxBrushRadius = 20
)

// Router обработчики /api
type Router struct {
	app           *container.Container
	maxImageBytes int64
}

func NewRouter(c *container.Container, maxImageBytes int64) *Router {
	return &Router{app: c, maxImageBytes: maxImageBytes}
}

// Register монтирует маршруты в группу
func (r *Router) Register(group *gin.RouterGroup) {
	if group == nil {
		return
	}
	group.GET("/features", r.handleFeatures)
	group.POST("/sessions", r.handleOpen)

	s := group.Group("/sessions/:id")
	s.GET("", r.handleState)
	s.DELETE("", r.handleClose)
	s.PUT("/image", r.handleLoadImage)
	s.POST("/annotations", r.handlePlace)
	s.PUT("/annotations", r.handleImport)
	s.DELETE("/annotations", r.handleClear)
	s.DELETE("/annotations/last", r.handleUndo)
	s.PATCH("/viewport", r.handleViewport)
	s.PUT("/patient", r.handlePatient)
	s.GET("/report", r.handleReport)
	s.GET("/view.png", r.handleView)
	s.POST("/analyze", r.handleAnalyze)
	s.POST("/export", r.handleExport)
}

type featureDTO struct {
	Code  string `json:"code"`
	Label string `json:"label"`
	Color string `json:"color"`
}

type placeRequest struct {
	DisplayX float64             `json:"display_x"`
	DisplayY float64             `json:"display_y"`
	OriginX  float64             `json:"origin_x"`
	OriginY  float64             `json:"origin_y"`
	Kind     *entity.FeatureKind `json:"kind"`
	Radius   *float64            `json:"radius"`
}

type patientRequest struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

type annotationResponse struct {
	Annotation *entity.Annotation `json:"annotation"`
	Report     entity.Report      `json:"report"`
}

type reportResponse struct {
	Report entity.Report `json:"report"`
	Lines  []string      `json:"lines"`
}

func (r *Router) handleFeatures(c *gin.Context) {
	out := make([]featureDTO, 0, len(entity.Features()))
	for _, f := range entity.Features() {
		out = append(out, featureDTO{
			Code:  f.Code,
			Label: f.Label,
			Color: fmt.Sprintf("#%02x%02x%02x", f.Color.R, f.Color.G, f.Color.B),
		})
	}
	c.JSON(http.StatusOK, out)
}

func (r *Router) handleOpen(c *gin.Context) {
	data, ok := r.readImage(c)
	if !ok {
		return
	}
	state, err := r.app.SessionService.Open(c.Request.Context(), data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, state)
}

func (r *Router) handleState(c *gin.Context) {
	state, err := r.app.SessionService.State(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (r *Router) handleClose(c *gin.Context) {
	if err := r.app.SessionService.Close(c.Request.Context(), c.Param("id")); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (r *Router) handleLoadImage(c *gin.Context) {
	data, ok := r.readImage(c)
	if !ok {
		return
	}
	state, err := r.app.SessionService.LoadImage(c.Request.Context(), c.Param("id"), data)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (r *Router) handlePlace(c *gin.Context) {
	var req placeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	var radius float64
	if req.Radius != nil {
		if *req.Radius < minBrushRadius || *req.Radius > maxBrushRadius {
			c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("radius must be within [%d, %d]", minBrushRadius, maxBrushRadius)})
			return
		}
		radius = *req.Radius
	}

	a, report, err := r.app.SessionService.PlaceAt(c.Request.Context(), c.Param("id"),
		entity.Point{X: req.DisplayX, Y: req.DisplayY},
		entity.Point{X: req.OriginX, Y: req.OriginY},
		req.Kind, radius)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, annotationResponse{Annotation: &a, Report: report})
}

func (r *Router) handleImport(c *gin.Context) {
	var items []app.AnnotationInput
	if err := c.ShouldBindJSON(&items); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	state, err := r.app.SessionService.Import(c.Request.Context(), c.Param("id"), items)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (r *Router) handleClear(c *gin.Context) {
	report, err := r.app.SessionService.Clear(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, annotationResponse{Report: report})
}

func (r *Router) handleUndo(c *gin.Context) {
	undone, report, err := r.app.SessionService.Undo(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	if undone == nil {
		c.Status(http.StatusNoContent)
		return
	}
	c.JSON(http.StatusOK, annotationResponse{Annotation: undone, Report: report})
}

func (r *Router) handleViewport(c *gin.Context) {
	var patch app.ViewportPatch
	if err := c.ShouldBindJSON(&patch); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if patch.Zoom != nil && (*patch.Zoom < minZoom || *patch.Zoom > maxZoom) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("zoom must be within [%v, %v]", minZoom, maxZoom)})
		return
	}
	if patch.BrushRadius != nil && (*patch.BrushRadius < minBrushRadius || *patch.BrushRadius > maxBrushRadius) {
		c.JSON(http.StatusBadRequest, gin.H{"error": fmt.Sprintf("brush_radius must be within [%d, %d]", minBrushRadius, maxBrushRadius)})
		return
	}
	state, err := r.app.SessionService.UpdateViewport(c.Request.Context(), c.Param("id"), patch)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (r *Router) handlePatient(c *gin.Context) {
	var req patientRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	state, err := r.app.SessionService.SetPatient(c.Request.Context(), c.Param("id"),
		strings.TrimSpace(req.ID), strings.TrimSpace(req.Name))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, state)
}

func (r *Router) handleReport(c *gin.Context) {
	report, lines, err := r.app.SessionService.Report(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, reportResponse{Report: report, Lines: lines})
}

// handleView кадр просмотра; pointer_x/pointer_y задают превью кисти
func (r *Router) handleView(c *gin.Context) {
	var pointer *entity.Point
	px, py := c.Query("pointer_x"), c.Query("pointer_y")
	if px != "" || py != "" {
		x, errX := strconv.ParseFloat(px, 64)
		y, errY := strconv.ParseFloat(py, 64)
		if errX != nil || errY != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "pointer_x and pointer_y must both be numbers"})
			return
		}
		pointer = &entity.Point{X: x, Y: y}
	}

	data, err := r.app.PreviewService.Render(c.Request.Context(), c.Param("id"), pointer)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "image/png", data)
}

func (r *Router) handleAnalyze(c *gin.Context) {
	outcome, err := r.app.AnalysisService.Analyze(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, outcome)
}

func (r *Router) handleExport(c *gin.Context) {
	out, err := r.app.ExportService.Export(c.Request.Context(), c.Param("id"))
	if err != nil {
		writeError(c, err)
		return
	}
	c.Header("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": out.Filename}))
	c.Data(http.StatusOK, "image/png", out.PNG)
}

// readImage принимает снимок телом запроса или полем image формы multipart
func (r *Router) readImage(c *gin.Context) ([]byte, bool) {
	if r.maxImageBytes > 0 {
		// запас на служебные части multipart
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, r.maxImageBytes+64<<10)
	}

	var (
		data []byte
		err  error
	)
	if strings.HasPrefix(c.ContentType(), "multipart/form-data") {
		var fh *multipart.FileHeader
		fh, err = c.FormFile("image")
		if err == nil {
			data, err = readFormFile(fh)
		}
	} else {
		data, err = io.ReadAll(c.Request.Body)
	}

	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &tooLarge):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image is too large"})
		return nil, false
	case err != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	case len(data) == 0:
		c.JSON(http.StatusBadRequest, gin.H{"error": "image is empty"})
		return nil, false
	case r.maxImageBytes > 0 && int64(len(data)) > r.maxImageBytes:
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": "image is too large"})
		return nil, false
	}
	return data, true
}

func readFormFile(fh *multipart.FileHeader) ([]byte, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return io.ReadAll(f)
}

// writeError сопоставляет ошибки домена HTTP-статусам
func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, entity.ErrSessionNotFound):
		status = http.StatusNotFound
	case errors.Is(err, entity.ErrInvalidImage),
		errors.Is(err, entity.ErrInvalidAnnotation),
		errors.Is(err, entity.ErrInvalidViewport):
		status = http.StatusBadRequest
	case errors.Is(err, entity.ErrNoImage), errors.Is(err, entity.ErrImageReplaced):
		status = http.StatusConflict
	case errors.Is(err, entity.ErrExternalService):
		status = http.StatusBadGateway
	case errors.Is(err, entity.ErrExport):
		status = http.StatusUnprocessableEntity
	}
	c.JSON(status, gin.H{"error": err.Error()})
}
