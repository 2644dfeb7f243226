package export

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"trichoscope/internal/domain/port"
)

// FileSink сохраняет экспортированные отчёты в каталог
type FileSink struct {
	Dir string
}

// NewFileSink создаёт каталог, если его ещё нет
func NewFileSink(dir string) (*FileSink, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create export dir: %w", err)
	}
	return &FileSink{Dir: dir}, nil
}

// Save пишет во временный файл и переименовывает его: частично записанный
// отчёт под итоговым именем не появляется никогда
func (s *FileSink) Save(ctx context.Context, filename string, data []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	name := filepath.Base(filename)
	if name == "." || name == string(filepath.Separator) {
		return fmt.Errorf("invalid export filename %q", filename)
	}

	tmp, err := os.CreateTemp(s.Dir, ".export-*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write export: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync export: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close export: %w", err)
	}
	if err := os.Rename(tmpName, filepath.Join(s.Dir, name)); err != nil {
		return fmt.Errorf("publish export: %w", err)
	}
	return nil
}

// Проверка реализации интерфейса
var _ port.ExportSink = (*FileSink)(nil)
