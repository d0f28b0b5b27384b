package gen

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watch runs the generator once and then again every time the schema file
// is written, until ctx is done. Generation errors are reported to onRun
// and logged; they do not stop the watch.
func Watch(ctx context.Context, cfg Config, log *zap.Logger, onRun func(error)) error {
	if err := cfg.validate(); err != nil {
		return err
	}
	if log == nil {
		log = zap.NewNop()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("scholar/gen: watch: %w", err)
	}
	defer w.Close()
	// Editors replace files on save; watch the directory.
	schemaPath, err := filepath.Abs(cfg.Schema)
	if err != nil {
		return fmt.Errorf("scholar/gen: watch: %w", err)
	}
	if err := w.Add(filepath.Dir(schemaPath)); err != nil {
		return fmt.Errorf("scholar/gen: watch %s: %w", filepath.Dir(schemaPath), err)
	}
	run := func() {
		err := Run(ctx, cfg)
		if err != nil {
			log.Error("generate handles", zap.String("schema", cfg.Schema), zap.Error(err))
		} else {
			log.Info("generated handles", zap.String("schema", cfg.Schema), zap.String("target", cfg.Target))
		}
		if onRun != nil {
			onRun(err)
		}
	}
	run()
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			name, err := filepath.Abs(ev.Name)
			if err != nil || name != schemaPath || !ev.Has(fsnotify.Write|fsnotify.Create) {
				continue
			}
			log.Debug("schema changed", zap.String("op", ev.Op.String()))
			run()
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn("watch error", zap.Error(err))
		}
	}
}
