package pdfdoc

import (
	"fmt"
	"os"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

// Preflight validates the PDF's cross-reference structure before
// extraction, catching truncated or corrupt files up front instead of
// failing midway through a page loop.
func Preflight(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening pdf: %w", err)
	}
	defer f.Close()

	conf := model.NewDefaultConfiguration()
	ctx, err := api.ReadValidateAndOptimize(f, conf)
	if err != nil {
		return fmt.Errorf("pdf validation: %w", err)
	}
	if ctx.PageCount == 0 {
		return fmt.Errorf("pdf validation: document has no pages")
	}
	return nil
}
