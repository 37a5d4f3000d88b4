package extraction

import (
	"bytes"
	"context"
	"math"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
	"github.com/m-mizutani/claimpilot/pkg/model"
	"github.com/m-mizutani/claimpilot/pkg/utils/logging"
	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultLocation = "Location not specified"
	DefaultDamages  = "Damage description not available"

	maxDamageSentences = 3
	confidenceChecks   = 6
)

// Service reads claim documents and pulls out structured fields with regular expressions
type Service struct {
	now func() time.Time
}

type Option func(*Service)

// WithClock replaces time.Now, used for the default incident date
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

func New(opts ...Option) *Service {
	s := &Service{now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Extract reads the document text and returns structured fields with a confidence score
func (s *Service) Extract(ctx context.Context, doc *model.Document) (*model.Extraction, error) {
	text, err := documentText(doc)
	if err != nil {
		return nil, err
	}

	x := s.fromText(text)
	logging.From(ctx).Debug("document extracted",
		"name", doc.Name,
		"incident_type", x.IncidentType,
		"confidence", x.Confidence,
	)
	return x, nil
}

func (s *Service) fromText(text string) *model.Extraction {
	x := &model.Extraction{
		IncidentType:       extractIncidentType(text),
		Date:               extractDate(text, s.now()),
		Location:           extractLocation(text),
		Parties:            extractParties(text),
		DamagesDescription: extractDamages(text),
		Amounts:            extractAmounts(text),
		RawText:            text,
	}
	x.Confidence = confidence(x)
	return x
}

// documentText reads doc and fails with ErrInputMissing when it carries no text
func documentText(doc *model.Document) (string, error) {
	if doc == nil || len(doc.Data) == 0 {
		return "", goerr.Wrap(model.ErrInputMissing, "no document or text provided")
	}

	text, err := readText(doc)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(text) == "" {
		return "", goerr.Wrap(model.ErrInputMissing, "document has no text", goerr.V("name", doc.Name))
	}
	return text, nil
}

func readText(doc *model.Document) (string, error) {
	switch doc.Ext() {
	case ".txt":
		if !utf8.Valid(doc.Data) {
			return "", goerr.Wrap(model.ErrValidation, "text document is not valid UTF-8", goerr.V("name", doc.Name))
		}
		return string(doc.Data), nil

	case ".pdf":
		return readPDF(doc)

	default:
		return "", goerr.Wrap(model.ErrValidation, "unsupported file format", goerr.V("name", doc.Name))
	}
}

func readPDF(doc *model.Document) (string, error) {
	r, err := pdf.NewReader(bytes.NewReader(doc.Data), int64(len(doc.Data)))
	if err != nil {
		return "", goerr.Wrap(model.ErrValidation, "failed to open PDF", goerr.V("name", doc.Name), goerr.V("error", err.Error()))
	}

	plain, err := r.GetPlainText()
	if err != nil {
		return "", goerr.Wrap(model.ErrValidation, "failed to read PDF text", goerr.V("name", doc.Name), goerr.V("error", err.Error()))
	}

	var buf bytes.Buffer
	if _, err := buf.ReadFrom(plain); err != nil {
		return "", goerr.Wrap(err, "failed to read PDF text", goerr.V("name", doc.Name))
	}
	return strings.TrimSpace(buf.String()), nil
}

var incidentPatterns = []struct {
	incident model.IncidentType
	pattern  *regexp.Regexp
}{
	{model.IncidentCarAccident, regexp.MustCompile(`(?i)(car accident|vehicle collision|auto accident|traffic accident|car crash)`)},
	{model.IncidentHomeDamage, regexp.MustCompile(`(?i)(home damage|house damage|property damage|water damage|fire damage)`)},
	{model.IncidentTheft, regexp.MustCompile(`(?i)(theft|burglary|stolen|robbery)`)},
	{model.IncidentMedical, regexp.MustCompile(`(?i)(medical|injury|hospital|treatment|doctor)`)},
}

func extractIncidentType(text string) model.IncidentType {
	for _, p := range incidentPatterns {
		if p.pattern.MatchString(text) {
			return p.incident
		}
	}
	return model.IncidentOther
}

var datePatterns = []*regexp.Regexp{
	regexp.MustCompile(`\b(\d{1,2}[/-]\d{1,2}[/-]\d{2,4})\b`),
	regexp.MustCompile(`\b(\d{4}[/-]\d{1,2}[/-]\d{1,2})\b`),
	regexp.MustCompile(`\b([A-Za-z]+\s+\d{1,2},?\s+\d{4})\b`),
}

func extractDate(text string, now time.Time) string {
	for _, p := range datePatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return m[1]
		}
	}
	return now.Format("2006-01-02")
}

var locationPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)(?:location|address|scene):\s*([^\n]+)`),
	regexp.MustCompile(`(?i)(?:at|near|on)\s+([A-Z][A-Za-z\s]+(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Drive|Dr)[^\n]*)`),
	regexp.MustCompile(`\b([A-Z][a-z]+,\s*[A-Z]{2})\b`),
}

func extractLocation(text string) string {
	for _, p := range locationPatterns {
		if m := p.FindStringSubmatch(text); m != nil {
			return strings.TrimSpace(m[1])
		}
	}
	return DefaultLocation
}

var partyPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)driver:\s*([A-Z][a-z]+\s+[A-Z][a-z]+)`),
	regexp.MustCompile(`(?i)owner:\s*([A-Z][a-z]+\s+[A-Z][a-z]+)`),
	regexp.MustCompile(`(?i)claimant:\s*([A-Z][a-z]+\s+[A-Z][a-z]+)`),
}

func extractParties(text string) []model.Party {
	var parties []model.Party
	for _, p := range partyPatterns {
		for _, m := range p.FindAllStringSubmatch(text, -1) {
			parties = append(parties, model.Party{Name: m[1], Role: "involved party"})
		}
	}
	return parties
}

var (
	sentenceSplit  = regexp.MustCompile(`[.!?]+`)
	damageKeywords = []string{
		"damage", "broken", "dent", "scratch", "shatter", "crack",
		"injury", "harm", "collision", "impact", "destroyed",
	}
)

func extractDamages(text string) string {
	var found []string
	for _, sentence := range sentenceSplit.Split(text, -1) {
		lower := strings.ToLower(sentence)
		for _, kw := range damageKeywords {
			if strings.Contains(lower, kw) {
				found = append(found, strings.TrimSpace(sentence))
				break
			}
		}
		if len(found) == maxDamageSentences {
			break
		}
	}

	if len(found) == 0 {
		return DefaultDamages
	}
	return strings.Join(found, " ")
}

var amountPattern = regexp.MustCompile(`\$\s*[\d,]+(?:\.\d{2})?`)

// extractAmounts skips amounts model.ParseAmount rejects, such as values above model.MaxAmount
func extractAmounts(text string) []float64 {
	var amounts []float64
	for _, m := range amountPattern.FindAllString(text, -1) {
		if v, ok := model.ParseAmount(m); ok {
			amounts = append(amounts, v)
		}
	}
	return amounts
}

func confidence(x *model.Extraction) float64 {
	var score float64
	if x.IncidentType != "" && x.IncidentType != model.IncidentOther {
		score++
	}
	if x.Date != "" {
		score++
	}
	if x.Location != "" && !strings.Contains(strings.ToLower(x.Location), "not specified") {
		score++
	}
	if len(x.Parties) > 0 {
		score++
	}
	if x.DamagesDescription != "" && !strings.Contains(strings.ToLower(x.DamagesDescription), "not available") {
		score++
	}
	if len(x.Amounts) > 0 {
		score++
	}
	return math.Round(score/confidenceChecks*100) / 100
}
