package analysis

import (
	"context"
	"time"

	"nutrition-call-assistant/internal/domain/images"
	"nutrition-call-assistant/internal/platform/debounce"
	"nutrition-call-assistant/internal/platform/eventbus"
)

// Subscriber es la parte del bus que necesita el auto-análisis.
type Subscriber interface {
	Subscribe(eventType string, h eventbus.Handler) (unsubscribe func())
}

type autoJob struct {
	url   string
	short string
}

// AutoAnalyzer analiza la última imagen subida de cada ráfaga.
// Solo reacciona a newImage con source=upload; las imágenes que ya vienen de
// analyze-image se analizan en su propio request.
type AutoAnalyzer struct {
	svc     *Service
	deb     *debounce.Debouncer[autoJob]
	timeout time.Duration
	unsub   func()
}

func NewAutoAnalyzer(svc *Service, bus Subscriber, delay, timeout time.Duration) *AutoAnalyzer {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	a := &AutoAnalyzer{svc: svc, timeout: timeout}
	a.deb = debounce.New(delay, a.run)
	a.unsub = bus.Subscribe(eventbus.TypeNewImage, func(evt eventbus.Event) {
		if src, _ := evt.Data["source"].(string); src != images.SourceUpload {
			return
		}
		url, _ := evt.Data["url"].(string)
		if url == "" {
			return
		}
		short, _ := evt.Data["shortUrl"].(string)
		a.deb.Trigger(autoJob{url: url, short: short})
	})
	return a
}

func (a *AutoAnalyzer) run(job autoJob) {
	// El request que subió la imagen ya terminó; usamos un contexto propio.
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if _, err := a.svc.Analyze(ctx, job.url, job.short, SourceAuto); err != nil {
		a.svc.log.Error("auto analysis failed", map[string]any{"image_url": job.url, "err": err})
	}
}

// Stop se da de baja del bus y cancela lo pendiente.
func (a *AutoAnalyzer) Stop() {
	a.unsub()
	a.deb.Stop()
}
