package translation

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/brandonnmartinsj/TradingAgents/pkg/utils"
)

// TranslationError wraps any failure of a model call. It is fatal for the
// text being translated; callers looping over files continue with the next.
type TranslationError struct {
	Err error
}

func (e *TranslationError) Error() string {
	return fmt.Sprintf("translation failed: %v", e.Err)
}

func (e *TranslationError) Unwrap() error {
	return e.Err
}

type Translator struct {
	cfg      Config
	model    ChatModel
	template prompt.ChatTemplate
}

func NewTranslator(cm ChatModel, cfg Config) *Translator {
	cfg = cfg.withDefaults()
	return &Translator{
		cfg:   cfg,
		model: cm,
		template: prompt.FromMessages(schema.FString,
			schema.SystemMessage(cfg.SystemPrompt),
			schema.UserMessage(cfg.UserTemplate),
		),
	}
}

func (t *Translator) Config() Config {
	return t.cfg
}

// TranslateText returns text translated to the target language. Blank input
// is returned unchanged without calling the model. There is no retry.
func (t *Translator) TranslateText(ctx context.Context, text string) (string, error) {
	if strings.TrimSpace(text) == "" {
		return text, nil
	}

	messages, err := t.template.Format(ctx, map[string]any{"content": text})
	if err != nil {
		return "", &TranslationError{Err: fmt.Errorf("format prompt: %w", err)}
	}

	resp, err := t.model.Generate(ctx, messages,
		model.WithTemperature(t.cfg.Temperature),
		model.WithMaxTokens(t.cfg.MaxTokens),
	)
	if err != nil {
		return "", &TranslationError{Err: err}
	}
	if resp == nil {
		return "", &TranslationError{Err: fmt.Errorf("empty response from model")}
	}
	return strings.TrimSpace(resp.Content), nil
}

// OutputPath derives "<stem>_<lang><ext>" next to path.
func (t *Translator) OutputPath(path string) string {
	ext := filepath.Ext(path)
	stem := strings.TrimSuffix(filepath.Base(path), ext)
	return filepath.Join(filepath.Dir(path), stem+t.cfg.Suffix()+ext)
}

// TranslateFile translates the whole file in one request and writes it to
// out, or to OutputPath(in) when out is empty.
func (t *Translator) TranslateFile(ctx context.Context, in, out string) (string, error) {
	data, err := os.ReadFile(in)
	if err != nil {
		return "", fmt.Errorf("read %s: %w", in, err)
	}

	log.Printf("[translation] translating %s", filepath.Base(in))
	translated, err := t.TranslateText(ctx, string(data))
	if err != nil {
		return "", err
	}

	if out == "" {
		out = t.OutputPath(in)
	}
	return utils.WriteMarkdown(filepath.Dir(out), filepath.Base(out), translated)
}

// TranslateDirectory translates every markdown file of dir that is not itself
// a translation. Failed files are logged and skipped; the written paths are
// returned in file name order.
func (t *Translator) TranslateDirectory(ctx context.Context, dir string) ([]string, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("reports directory not found: %s", dir)
	}

	files, err := filepath.Glob(filepath.Join(dir, "*.md"))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", dir, err)
	}
	sort.Strings(files)

	var written []string
	for _, f := range files {
		stem := strings.TrimSuffix(filepath.Base(f), filepath.Ext(f))
		if strings.Contains(stem, t.cfg.Suffix()) {
			log.Printf("[translation] skip %s (already translated)", filepath.Base(f))
			continue
		}
		if err := ctx.Err(); err != nil {
			return written, err
		}
		out, err := t.TranslateFile(ctx, f, "")
		if err != nil {
			log.Printf("[translation] %s: %v", filepath.Base(f), err)
			continue
		}
		written = append(written, out)
	}
	return written, nil
}
