package port

import "context"

// ExportSink принимает готовый PNG и сохраняет его под предложенным именем
type ExportSink interface {
	Save(ctx context.Context, filename string, data []byte) error
}
