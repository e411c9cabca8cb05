package debug

import (
	"context"
	"fmt"
	"log"
	"strconv"

	"github.com/cloudwego/eino-ext/devops"

	"github.com/brandonnmartinsj/TradingAgents/config"
)

// EinoDebugger starts the Eino devops server so translation prompts and
// model calls can be inspected while reports are being translated.
type EinoDebugger struct {
	config *config.Config
}

func NewEinoDebugger(cfg *config.Config) *EinoDebugger {
	return &EinoDebugger{config: cfg}
}

func (d *EinoDebugger) Initialize(ctx context.Context) error {
	if !d.config.EinoDebugEnabled {
		return nil
	}

	if d.config.Debug {
		log.Printf("[EinoDebug] Initializing Eino visual debug plugin on port %d", d.config.EinoDebugPort)
	}

	err := devops.Init(ctx, devops.WithDevServerPort(strconv.Itoa(d.config.EinoDebugPort)))
	if err != nil {
		return fmt.Errorf("failed to initialize Eino debug plugin: %w", err)
	}

	log.Printf("[EinoDebug] debug server at %s", d.GetDebugURL())
	return nil
}

func (d *EinoDebugger) IsEnabled() bool {
	return d.config.EinoDebugEnabled
}

func (d *EinoDebugger) GetDebugURL() string {
	if !d.config.EinoDebugEnabled {
		return ""
	}
	return fmt.Sprintf("http://localhost:%d", d.config.EinoDebugPort)
}
