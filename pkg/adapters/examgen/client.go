// Package examgen generates and grades quizzes through the exam service.
package examgen

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/Lifelong-Learning-Assisttant/agent-service/internal/httpjson"
	"github.com/Lifelong-Learning-Assisttant/agent-service/pkg/domain"
	"github.com/mitchellh/mapstructure"
)

const (
	GeneratePath     = "/api/generate"
	GradePath        = "/api/grade"
	DefaultQuestions = 5
	DefaultTimeout   = 60 * time.Second
)

var (
	// ErrNotConfigured is returned when no service URL is set.
	ErrNotConfigured = errors.New("test generator service not configured")
	// ErrEmptyExam is returned when the service produced no questions.
	ErrEmptyExam = errors.New("exam has no questions")
)

// Client implements ports.QuizService against the exam service.
type Client struct {
	baseURL   string
	questions int
	http      *http.Client
}

type Option func(*Client)

// WithQuestions sets the number of questions requested per exam.
func WithQuestions(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.questions = n
		}
	}
}

// WithHTTPClient replaces the HTTP client, including its timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// New creates a Client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:   strings.TrimRight(strings.TrimSpace(baseURL), "/"),
		questions: DefaultQuestions,
		http:      &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type generateRequest struct {
	MarkdownContent string         `json:"markdown_content"`
	Config          map[string]any `json:"config"`
}

type question struct {
	Question string   `mapstructure:"question"`
	Text     string   `mapstructure:"text"`
	Options  []string `mapstructure:"options"`
}

func (q question) prompt() string {
	if s := strings.TrimSpace(q.Question); s != "" {
		return s
	}
	return strings.TrimSpace(q.Text)
}

type exam struct {
	ExamID    string     `mapstructure:"exam_id"`
	ID        string     `mapstructure:"id"`
	Title     string     `mapstructure:"title"`
	Questions []question `mapstructure:"questions"`
}

// GenerateQuiz asks the service for an exam built from material and
// renders its questions as Markdown.
func (c *Client) GenerateQuiz(ctx context.Context, material string) (domain.Quiz, error) {
	if c.baseURL == "" {
		return domain.Quiz{}, ErrNotConfigured
	}

	reply, err := httpjson.Post(ctx, c.http, c.baseURL+GeneratePath, generateRequest{
		MarkdownContent: material,
		Config:          map[string]any{"num_questions": c.questions},
	})
	if err != nil {
		return domain.Quiz{}, fmt.Errorf("generate exam: %w", err)
	}

	// Some deployments wrap the exam in an "exam" object.
	if inner, ok := reply["exam"].(map[string]any); ok {
		for k, v := range reply {
			if _, exists := inner[k]; !exists && k != "exam" {
				inner[k] = v
			}
		}
		reply = inner
	}

	var e exam
	if err := mapstructure.WeakDecode(reply, &e); err != nil {
		return domain.Quiz{}, fmt.Errorf("generate exam: decode: %w", err)
	}
	id := e.ExamID
	if id == "" {
		id = e.ID
	}
	if id == "" {
		return domain.Quiz{}, errors.New("generate exam: reply has no exam id")
	}

	content := renderExam(e)
	if content == "" {
		return domain.Quiz{}, fmt.Errorf("generate exam %s: %w", id, ErrEmptyExam)
	}
	return domain.Quiz{ID: id, Content: content}, nil
}

func renderExam(e exam) string {
	var b strings.Builder
	if t := strings.TrimSpace(e.Title); t != "" {
		fmt.Fprintf(&b, "## %s\n\n", t)
	}
	n := 0
	for _, q := range e.Questions {
		p := q.prompt()
		if p == "" {
			continue
		}
		n++
		fmt.Fprintf(&b, "%d. %s\n", n, p)
		for i, opt := range q.Options {
			fmt.Fprintf(&b, "   %c) %s\n", 'a'+rune(i%26), strings.TrimSpace(opt))
		}
	}
	if n == 0 {
		return ""
	}
	return strings.TrimRight(b.String(), "\n")
}

// Answer is one graded answer.
type Answer struct {
	QuestionIndex int    `json:"question_index"`
	Answer        string `json:"answer"`
}

type gradeRequest struct {
	ExamID  string   `json:"exam_id"`
	Answers []Answer `json:"answers"`
}

type questionResult struct {
	QuestionIndex int    `mapstructure:"question_index"`
	Correct       bool   `mapstructure:"correct"`
	Feedback      string `mapstructure:"feedback"`
}

type grade struct {
	Score    float64          `mapstructure:"score"`
	MaxScore float64          `mapstructure:"max_score"`
	Total    float64          `mapstructure:"total"`
	Feedback string           `mapstructure:"feedback"`
	Summary  string           `mapstructure:"summary"`
	Results  []questionResult `mapstructure:"results"`
}

// GradeQuiz submits the free-form answers text for quizID and renders the
// service verdict as Markdown.
func (c *Client) GradeQuiz(ctx context.Context, quizID, answers string) (string, error) {
	if c.baseURL == "" {
		return "", ErrNotConfigured
	}

	reply, err := httpjson.Post(ctx, c.http, c.baseURL+GradePath, gradeRequest{
		ExamID:  quizID,
		Answers: ParseAnswers(answers),
	})
	if err != nil {
		return "", fmt.Errorf("grade exam: %w", err)
	}

	var g grade
	if err := mapstructure.WeakDecode(reply, &g); err != nil {
		return "", fmt.Errorf("grade exam: decode: %w", err)
	}
	return renderGrade(g), nil
}

func renderGrade(g grade) string {
	var b strings.Builder
	outOf := g.MaxScore
	if outOf == 0 {
		outOf = g.Total
	}
	if outOf > 0 {
		fmt.Fprintf(&b, "**Score: %g/%g**\n\n", g.Score, outOf)
	}
	for _, r := range g.Results {
		mark := "incorrect"
		if r.Correct {
			mark = "correct"
		}
		fmt.Fprintf(&b, "%d. %s", r.QuestionIndex+1, mark)
		if fb := strings.TrimSpace(r.Feedback); fb != "" {
			fmt.Fprintf(&b, ": %s", fb)
		}
		b.WriteString("\n")
	}
	for _, s := range []string{g.Feedback, g.Summary} {
		if s = strings.TrimSpace(s); s != "" {
			fmt.Fprintf(&b, "\n%s\n", s)
		}
	}
	out := strings.TrimSpace(b.String())
	if out == "" {
		return "Your answers were submitted for grading."
	}
	return out
}

var numbered = regexp.MustCompile(`^\s*(\d+)\s*[.):\-]\s*(.*)$`)

// ParseAnswers splits a free-form answers text into per-question answers.
// Items are separated by newlines or semicolons and may carry a question
// number ("2) b", "3: text"); unnumbered items follow the previous one.
// Indexes are zero-based.
func ParseAnswers(text string) []Answer {
	fields := strings.FieldsFunc(text, func(r rune) bool { return r == '\n' || r == ';' })
	answers := make([]Answer, 0, len(fields))
	next := 0
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		idx := next
		if m := numbered.FindStringSubmatch(f); m != nil {
			if n, err := strconv.Atoi(m[1]); err == nil && n > 0 {
				idx = n - 1
			}
			f = strings.TrimSpace(m[2])
		}
		answers = append(answers, Answer{QuestionIndex: idx, Answer: f})
		next = idx + 1
	}
	return answers
}
