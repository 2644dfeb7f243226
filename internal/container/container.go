package container

import (
	app "trichoscope/internal/application"
	"trichoscope/internal/domain/port"
)

// Dependencies адаптеры инфраструктуры. Detector и Sink необязательны.
type Dependencies struct {
	Users    port.UserRepository
	Sessions port.SessionRepository
	Decoder  port.ImageDecoder
	Renderer port.Renderer
	Detector port.AnnotationDetector
	Sink     port.ExportSink

	BrushRadius float64
}

type Container struct {
	UserService     *app.UserService
	SessionService  *app.SessionService
	AnalysisService *app.AnalysisService
	ExportService   *app.ExportService
	PreviewService  *app.PreviewService
}

func New(deps Dependencies) *Container {
	sessionService := app.NewSessionService(deps.Sessions, deps.Decoder)
	sessionService.SetDefaultBrushRadius(deps.BrushRadius)

	return &Container{
		UserService:     app.NewUserService(deps.Users),
		SessionService:  sessionService,
		AnalysisService: app.NewAnalysisService(deps.Sessions, deps.Decoder, deps.Detector),
		ExportService:   app.NewExportService(deps.Sessions, deps.Decoder, deps.Renderer, deps.Sink),
		PreviewService:  app.NewPreviewService(deps.Sessions, deps.Decoder, deps.Renderer),
	}
}
