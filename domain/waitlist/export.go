package waitlist

import (
	"encoding/csv"
	"io"
	"strings"

	"github.com/akeren/go-waitlist/internal/models"
	"github.com/akeren/go-waitlist/pkg/constants"
)

const (
	ExportFilename    = "waitlist-emails.csv"
	ExportContentType = "text/csv"
)

var exportHeader = []string{"Email", "Name", "Creator Type", "Joined Date"}

// WriteSignupsCSV writes one row per signup in the order given.
func WriteSignupsCSV(w io.Writer, signups []*models.WaitlistSignup) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(exportHeader); err != nil {
		return err
	}

	for _, s := range signups {
		row := []string{
			escapeFormula(s.Email),
			escapeFormula(s.Name),
			escapeFormula(s.CreatorType),
			s.CreatedAt.UTC().Format(constants.ISO8601MillisFormat),
		}
		if err := cw.Write(row); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

// escapeFormula keeps spreadsheet apps from evaluating user-supplied text.
func escapeFormula(v string) string {
	if v != "" && strings.ContainsRune("=+-@\t\r", rune(v[0])) {
		return "'" + v
	}
	return v
}
