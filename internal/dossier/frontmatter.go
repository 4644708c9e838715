package dossier

import (
	"bytes"
	"errors"
	"fmt"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/digital-seeds-4/preincubation/internal/submission"
)

var (
	// ErrMissingFrontMatter indicates the document did not start with a YAML fence.
	ErrMissingFrontMatter = errors.New("dossier: missing frontmatter")
	// ErrMalformedFrontMatter indicates the YAML block could not be parsed.
	ErrMalformedFrontMatter = errors.New("dossier: malformed frontmatter")
)

// Header is the metadata block written at the top of a Markdown dossier.
type Header struct {
	SubmissionID  string
	ProjectName   string
	UserName      string
	MaturityScore int
	Status        submission.Status
	EvaluatedBy   string
	SubmittedAt   time.Time
	ExportedAt    time.Time
	Version       string
}

// HeaderFor captures the identifying fields of sub.
func HeaderFor(sub submission.Submission, exportedAt time.Time) Header {
	return Header{
		SubmissionID:  sub.ID,
		ProjectName:   sub.ProjectName,
		UserName:      sub.UserName,
		MaturityScore: sub.MaturityScore,
		Status:        sub.Status,
		EvaluatedBy:   sub.Evaluator(),
		SubmittedAt:   sub.SubmittedAt,
		ExportedAt:    exportedAt,
		Version:       FormatVersion,
	}
}

// ParseFrontMatter extracts the header and body from a dossier that starts
// with `---` YAML fences.
func ParseFrontMatter(content []byte) (Header, []byte, error) {
	if len(content) == 0 {
		return Header{}, nil, ErrMissingFrontMatter
	}
	normalized := normalizeNewlines(content)
	if !bytes.HasPrefix(normalized, []byte("---\n")) {
		return Header{}, nil, ErrMissingFrontMatter
	}
	rest := normalized[4:]
	parts := bytes.SplitN(rest, []byte("\n---\n"), 2)
	if len(parts) < 2 {
		return Header{}, nil, ErrMalformedFrontMatter
	}
	var envelope dossierEnvelope
	if err := yaml.Unmarshal(parts[0], &envelope); err != nil {
		return Header{}, nil, fmt.Errorf("dossier: parse frontmatter: %w", err)
	}
	header, err := envelope.toHeader()
	if err != nil {
		return Header{}, nil, err
	}
	return header, bytes.TrimLeft(parts[1], "\n"), nil
}

// WriteFrontMatter renders header + body with YAML fences.
func WriteFrontMatter(header Header, body []byte) ([]byte, error) {
	if header.SubmissionID == "" {
		return nil, fmt.Errorf("dossier: header missing submission id")
	}
	envelope := dossierEnvelope{}
	envelope.fromHeader(header)
	data, err := yaml.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("dossier: encode frontmatter: %w", err)
	}
	var buf bytes.Buffer
	buf.WriteString("---\n")
	buf.Write(bytes.TrimRight(data, "\n"))
	buf.WriteString("\n---\n\n")
	buf.Write(body)
	return buf.Bytes(), nil
}

type dossierEnvelope struct {
	Dossier dossierMetadata `yaml:"dossier"`
}

type dossierMetadata struct {
	Submission  string `yaml:"submission"`
	Project     string `yaml:"project"`
	User        string `yaml:"user,omitempty"`
	Maturity    int    `yaml:"maturity"`
	Status      string `yaml:"status"`
	EvaluatedBy string `yaml:"evaluated_by,omitempty"`
	Submitted   string `yaml:"submitted"`
	Exported    string `yaml:"exported"`
	Version     string `yaml:"version"`
}

func (e dossierEnvelope) toHeader() (Header, error) {
	meta := e.Dossier
	if meta.Submission == "" || meta.Project == "" || meta.Version == "" {
		return Header{}, ErrMalformedFrontMatter
	}
	status, err := submission.ParseStatus(meta.Status)
	if err != nil {
		return Header{}, fmt.Errorf("dossier: %w", err)
	}
	submitted, err := parseTime(meta.Submitted)
	if err != nil {
		return Header{}, fmt.Errorf("dossier: parse submitted timestamp: %w", err)
	}
	exported, err := parseTime(meta.Exported)
	if err != nil {
		return Header{}, fmt.Errorf("dossier: parse exported timestamp: %w", err)
	}
	return Header{
		SubmissionID:  meta.Submission,
		ProjectName:   meta.Project,
		UserName:      meta.User,
		MaturityScore: meta.Maturity,
		Status:        status,
		EvaluatedBy:   meta.EvaluatedBy,
		SubmittedAt:   submitted,
		ExportedAt:    exported,
		Version:       meta.Version,
	}, nil
}

func (e *dossierEnvelope) fromHeader(header Header) {
	version := header.Version
	if version == "" {
		version = FormatVersion
	}
	e.Dossier = dossierMetadata{
		Submission:  header.SubmissionID,
		Project:     header.ProjectName,
		User:        header.UserName,
		Maturity:    header.MaturityScore,
		Status:      string(header.Status),
		EvaluatedBy: header.EvaluatedBy,
		Submitted:   header.SubmittedAt.UTC().Format(timeLayout),
		Exported:    header.ExportedAt.UTC().Format(timeLayout),
		Version:     version,
	}
}

const timeLayout = "2006-01-02T15:04:05Z07:00"

func parseTime(value string) (time.Time, error) {
	if strings.TrimSpace(value) == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	t, err := time.Parse(timeLayout, value)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}

func normalizeNewlines(content []byte) []byte {
	return bytes.ReplaceAll(content, []byte("\r\n"), []byte("\n"))
}
