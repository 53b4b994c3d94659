//go:build integration

package pistonpress

// Notes:
// - Integration tests share one launched Queue created in TestMain
// - Requires Chrome/Chromium (ROD_BROWSER_BIN or rod's managed download)
// - PDF text is extracted with go-fitz (MuPDF) to check what was printed

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gen2brain/go-fitz"
)

// testTimeout is the standard timeout for integration test operations.
const testTimeout = 30 * time.Second

// testQueue is shared by all integration tests.
var testQueue *Queue

func TestMain(m *testing.M) {
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	q, err := Launch(ctx, Directories{
		Templates: "testdata/templates",
		Assets:    "testdata/assets",
	}, WithConcurrency(2), WithTimeout(testTimeout))
	cancel()
	if err != nil {
		fmt.Fprintf(os.Stderr, "launch failed: %v\n", err)
		os.Exit(1)
	}
	testQueue = q

	code := m.Run()

	if err := testQueue.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "close failed: %v\n", err)
	}
	os.Exit(code)
}

// extractText returns the page count and the text of every page.
func extractText(pdf []byte) (pages int, text string, err error) {
	doc, err := fitz.NewFromMemory(pdf)
	if err != nil {
		return 0, "", fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	var b strings.Builder
	for i := 0; i < doc.NumPage(); i++ {
		s, err := doc.Text(i)
		if err != nil {
			return 0, "", fmt.Errorf("extracting page %d text: %w", i, err)
		}
		b.WriteString(s)
	}
	return doc.NumPage(), b.String(), nil
}

// pdfText is extractText for the test goroutine.
func pdfText(t *testing.T, pdf []byte) (pages int, text string) {
	t.Helper()
	pages, text, err := extractText(pdf)
	if err != nil {
		t.Fatal(err)
	}
	return pages, text
}

func TestIntegration_HelloWorld(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	pdf, err := testQueue.Print(ctx, Request{
		TemplateName: "hello",
		Values:       Values{"name": "world"},
		PDF:          &PDFOptions{Size: PageSizeA4, PrintBackground: true},
	})
	if err != nil {
		t.Fatalf("Print() error = %v", err)
	}
	if !strings.HasPrefix(string(pdf), "%PDF-") {
		t.Fatalf("output does not start with %%PDF-: %q", pdf[:min(len(pdf), 16)])
	}

	pages, text := pdfText(t, pdf)
	if pages != 1 {
		t.Errorf("pages = %d, want 1", pages)
	}
	if !strings.Contains(text, "Hello world") {
		t.Errorf("PDF text = %q, want it to contain %q", text, "Hello world")
	}
}

func TestIntegration_ReadySignal(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
	defer cancel()

	pdf, err := testQueue.Print(ctx, Request{
		TemplateName: "ready",
		Values:       Values{"label": "late"},
		Options:      &PrintOptions{WaitSignal: WaitReady},
	})
	if err != nil {
		t.Fatalf("Print() error = %v", err)
	}

	_, text := pdfText(t, pdf)
	if !strings.Contains(text, "rendered late") {
		t.Errorf("PDF text = %q, want the post-ready content", text)
	}
}

func TestIntegration_MissingAsset(t *testing.T) {
	t.Parallel()

	t.Run("fails by default", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()

		_, err := testQueue.Print(ctx, Request{TemplateName: "missing-asset"})

		var perr *Error
		if !errors.As(err, &perr) || perr.Kind != KindAssetNotFound {
			t.Fatalf("Print() error = %v, want AssetNotFound", err)
		}
		if perr.URL != "/assets/does-not-exist.png" {
			t.Errorf("URL = %q, want /assets/does-not-exist.png", perr.URL)
		}
	})

	t.Run("allowed", func(t *testing.T) {
		t.Parallel()

		ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
		defer cancel()

		pdf, err := testQueue.Print(ctx, Request{
			TemplateName: "missing-asset",
			Options:      &PrintOptions{AllowFailedSubResources: true},
		})
		if err != nil {
			t.Fatalf("Print() error = %v", err)
		}
		if _, text := pdfText(t, pdf); !strings.Contains(text, "Body text survives") {
			t.Errorf("PDF text = %q, want body text", text)
		}
	})
}

func TestIntegration_Failures(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		req      Request
		wantKind Kind
	}{
		{
			name:     "script error",
			req:      Request{TemplateName: "script-error"},
			wantKind: KindPageScriptError,
		},
		{
			name:     "unknown template",
			req:      Request{TemplateName: "no-such-template"},
			wantKind: KindTemplateNotFound,
		},
		{
			name:     "template execution failure",
			req:      Request{TemplateName: "bad-values"},
			wantKind: KindRenderError,
		},
		{
			name:     "empty template name",
			req:      Request{},
			wantKind: KindInvalidInput,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			ctx, cancel := context.WithTimeout(context.Background(), testTimeout)
			defer cancel()

			pdf, err := testQueue.Print(ctx, tt.req)
			if pdf != nil {
				t.Errorf("Print() returned %d bytes, want none", len(pdf))
			}
			if got := KindOf(err); got != tt.wantKind {
				t.Errorf("KindOf(Print()) = %v, want %v (err: %v)", got, tt.wantKind, err)
			}
		})
	}
}

func TestIntegration_ConcurrentJobs(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithTimeout(context.Background(), 2*testTimeout)
	defer cancel()

	const jobs = 6
	var wg sync.WaitGroup
	errs := make(chan error, jobs)

	for i := 0; i < jobs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			name := fmt.Sprintf("job-%d", i)
			pdf, err := testQueue.Print(ctx, Request{TemplateName: "hello", Values: Values{"name": name}})
			if err != nil {
				errs <- fmt.Errorf("%s: %w", name, err)
				return
			}
			_, text, err := extractText(pdf)
			if err != nil {
				errs <- fmt.Errorf("%s: %w", name, err)
				return
			}
			if !strings.Contains(text, "Hello "+name) {
				errs <- fmt.Errorf("%s: PDF text %q is missing its own name", name, text)
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Error(err)
	}
	if s := testQueue.Stats(); s.Limit != 2 {
		t.Errorf("Limit = %d, want 2", s.Limit)
	}
}
