package services

import (
	"context"
	"strings"
	"testing"

	"github.com/justsurfingit/jobsearch-hub/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms/fake"
)

func TestLLMService_SummarizeReference(t *testing.T) {
	svc := &LLMService{Client: fake.NewFakeLLM([]string{"  Ana led your Go team and vouched twice.  "})}

	text, err := svc.SummarizeReference(context.Background(), "Go backend role", ScoredReference{
		Reference:   models.Reference{Name: "Ana", Tags: []string{"go"}},
		MatchedTags: []string{"go"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana led your Go team and vouched twice.", text)
}

func TestLLMService_EmptyResponseIsAnError(t *testing.T) {
	svc := &LLMService{Client: fake.NewFakeLLM([]string{"   "})}

	_, err := svc.SummarizeReference(context.Background(), "goal", ScoredReference{})
	assert.Error(t, err)
}

func TestNewLLMService_RequiresKey(t *testing.T) {
	_, err := NewLLMService(context.Background(), "", "gemini-2.5-flash")
	assert.Error(t, err)
}

func TestLLMService_ExtractJobDetails(t *testing.T) {
	tests := []struct {
		name string
		resp string
	}{
		{"plain json", `{"company_name":"Globex","role_title":"Platform Engineer","location":"Remote","tech_stack":["Go","AWS"],"salary_range":null}`},
		{"fenced json", "```json\n{\"company_name\":\"Globex\",\"role_title\":\"Platform Engineer\",\"location\":\"Remote\",\"tech_stack\":[\"Go\",\"AWS\"]}\n```"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &LLMService{Client: fake.NewFakeLLM([]string{tt.resp})}

			details, err := svc.ExtractJobDetails(context.Background(), "<html>posting</html>")
			require.NoError(t, err)
			assert.Equal(t, "Globex", details.CompanyName)
			assert.Equal(t, "Platform Engineer", details.Title)
			assert.Equal(t, "Remote", details.Location)
			assert.Equal(t, []string{"Go", "AWS"}, details.TechStack)
			assert.Empty(t, details.SalaryRange)
		})
	}
}

func TestLLMService_ExtractJobDetailsRejectsBadOutput(t *testing.T) {
	for _, resp := range []string{"Sorry, I cannot help with that.", `{"location":"Berlin"}`} {
		svc := &LLMService{Client: fake.NewFakeLLM([]string{resp})}

		_, err := svc.ExtractJobDetails(context.Background(), "<html></html>")
		assert.Error(t, err, resp)
	}
}

func TestLLMService_ExtractJobDetailsTruncatesLongPostings(t *testing.T) {
	svc := &LLMService{Client: fake.NewFakeLLM([]string{`{"company_name":"Globex","role_title":"SRE"}`})}

	details, err := svc.ExtractJobDetails(context.Background(), strings.Repeat("é", maxPostingBytes))
	require.NoError(t, err)
	assert.Equal(t, "SRE", details.Title)
}

var (
	_ ReferenceSummarizer = (*LLMService)(nil)
	_ JobExtractor        = (*LLMService)(nil)
)
