package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/googleai"
)

// ReferenceSummarizer writes the one-line blurb shown next to a portfolio entry.
type ReferenceSummarizer interface {
	SummarizeReference(ctx context.Context, goal string, ref ScoredReference) (string, error)
}

// JobExtractor turns a pasted job posting into fields for a new job.
type JobExtractor interface {
	ExtractJobDetails(ctx context.Context, rawHTML string) (*JobDetails, error)
}

// JobDetails mirrors the optional fields of a job creation request.
type JobDetails struct {
	CompanyName string   `json:"company_name"`
	Title       string   `json:"role_title"`
	Location    string   `json:"location"`
	Description string   `json:"description"`
	TechStack   []string `json:"tech_stack"`
	SalaryRange string   `json:"salary_range"`
	JobLink     string   `json:"job_link,omitempty"`
}

type LLMService struct {
	Client llms.Model
}

// NewLLMService creates a Gemini-backed client.
func NewLLMService(ctx context.Context, apiKey, model string) (*LLMService, error) {
	if apiKey == "" {
		return nil, errors.New("gemini api key is empty")
	}

	llm, err := googleai.New(ctx,
		googleai.WithAPIKey(apiKey),
		googleai.WithDefaultModel(model),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}

	return &LLMService{
		Client: llm,
	}, nil
}

const referenceSummaryPrompt = `
You are helping a job seeker decide whom to ask for a reference.

### GOAL:
%s

### REFERENCE:
Name: %s
Relationship: %s
Company: %s
Tags: %s
Tags matching the goal: %s
Successful references given: %d of %d requests
Availability: %s

### INSTRUCTIONS:
Write ONE sentence (max 30 words) explaining why this person is or is not a good fit for the goal.
Plain text only. Do not invent facts that are not listed above.
`

func (s *LLMService) SummarizeReference(ctx context.Context, goal string, ref ScoredReference) (string, error) {
	r := ref.Reference
	prompt := fmt.Sprintf(referenceSummaryPrompt,
		goal,
		r.Name,
		r.Relationship,
		r.Company,
		strings.Join(r.Tags, ", "),
		strings.Join(ref.MatchedTags, ", "),
		r.SuccessCount, r.UsageCount,
		r.AvailabilityStatus,
	)

	resp, err := llms.GenerateFromSinglePrompt(ctx, s.Client, prompt)
	if err != nil {
		return "", err
	}
	resp = strings.TrimSpace(resp)
	if resp == "" {
		return "", errors.New("empty summary from model")
	}
	return resp, nil
}

// Postings are cut to this many bytes before prompting.
const maxPostingBytes = 20000

const jobExtractionPrompt = `
You are an expert Job Data Extraction Agent. Your task is to analyze the provided raw HTML/Text from a job posting and extract structured data.

### INSTRUCTIONS:
1. **Analyze** the text to identify the core job details.
2. **Ignore** navigation menus, footers, "similar jobs" lists, and site advertisements.
3. **Format** the output as valid JSON only. Do not wrap the output in markdown code blocks.

### OUTPUT SCHEMA:
{
    "company_name": "Name of the company (e.g., Google, StartupInc)",
    "role_title": "Job title (e.g., Senior Backend Engineer)",
    "location": "Job location or 'Remote'",
    "description": "A clean summary of the job. Focus on Responsibilities and Requirements. Remove HTML tags.",
    "tech_stack": ["Array", "of", "technologies", "mentioned", "e.g., Go, React, AWS"],
    "salary_range": "The salary string if explicitly mentioned (e.g., '$100k - $150k'), otherwise null"
}

### CONSTRAINT:
If a piece of information is missing, set the value to null. Do not hallucinate or guess.

### RAW CONTENT:
%s
`

// ExtractJobDetails takes raw HTML and returns the structured job fields.
func (s *LLMService) ExtractJobDetails(ctx context.Context, rawHTML string) (*JobDetails, error) {
	if len(rawHTML) > maxPostingBytes {
		rawHTML = strings.ToValidUTF8(rawHTML[:maxPostingBytes], "")
	}

	resp, err := llms.GenerateFromSinglePrompt(ctx, s.Client, fmt.Sprintf(jobExtractionPrompt, rawHTML))
	if err != nil {
		return nil, err
	}

	var details JobDetails
	if err := json.Unmarshal([]byte(stripCodeFence(resp)), &details); err != nil {
		return nil, fmt.Errorf("model returned invalid JSON: %w", err)
	}
	if details.CompanyName == "" && details.Title == "" {
		return nil, errors.New("model found neither a company nor a title")
	}
	return &details, nil
}

// stripCodeFence removes a ```json wrapper the model sometimes adds anyway.
func stripCodeFence(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```json")
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
