package stacks

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/jsonschema-go/jsonschema"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/germanamz/blasko/pkg/chats/chat"
	"github.com/germanamz/blasko/pkg/chats/message"
	"github.com/germanamz/blasko/pkg/chats/role"
	"github.com/germanamz/blasko/pkg/modeladapter"
	"github.com/germanamz/blasko/pkg/tools/toolbox"
	"github.com/germanamz/blasko/pkg/tools/toolerr"
)

const (
	knowledgeSearchLimit = 5
	knowledgeFetchLimit  = 3

	noDocsAnswer    = "I couldn't find specific documentation for your question. Could you rephrase or ask about the Stacks blockchain, stacking, sBTC, Clarity smart contracts, or other Stacks features?"
	noContentAnswer = "I couldn't fetch detailed content from the documentation pages. Please check the sources below for official information."
)

const synthesisPrompt = `You are a helpful Stacks blockchain expert. Based on the following documentation content, provide a clear, concise answer to the user's question.

USER QUESTION: %s

DOCUMENTATION CONTENT:
%s

INSTRUCTIONS:
- Provide a direct, well-structured answer
- Include specific details: numbers, requirements, steps, contract names
- Use bullet points or numbered lists when appropriate
- Keep it concise but informative (aim for 200-400 words)
- Don't mention that you're reading from documentation - just answer naturally
- Format with markdown for readability

YOUR ANSWER:`

type getStacksKnowledgeInput struct {
	Question string `json:"question"`
}

type knowledgeSource struct {
	Title string `json:"title"`
	URL   string `json:"url"`
}

type knowledgeOutput struct {
	Question   string            `json:"question"`
	Answer     string            `json:"answer"`
	RawContent string            `json:"rawContent"`
	Sources    []knowledgeSource `json:"sources"`
}

func (s *Stacks) getStacksKnowledgeTool() toolbox.Tool {
	return toolbox.Tool{
		Name:        "getStacksKnowledge",
		Description: "Search the official Stacks documentation and answer questions about the Stacks blockchain, stacking, sBTC, Clarity, mining, BNS, transactions and other concepts. The tool fetches relevant docs, synthesises an answer and returns it with source references.",
		InputSchema: object(map[string]*jsonschema.Schema{
			"question": str(`The user's question about Stacks (e.g. "How can I stack STX?", "What is sBTC?")`),
		}, "question"),
		Handler: toolbox.Typed(s.getStacksKnowledge),
	}
}

func (s *Stacks) getStacksKnowledge(ctx context.Context, in getStacksKnowledgeInput) (any, error) {
	question := strings.TrimSpace(in.Question)
	if question == "" {
		return nil, toolerr.Validation("question", "is required")
	}

	hits := s.docs.Search(question, knowledgeSearchLimit)
	if len(hits) == 0 {
		return knowledgeOutput{Question: question, Answer: noDocsAnswer, Sources: []knowledgeSource{}}, nil
	}

	hits = hits[:min(len(hits), knowledgeFetchLimit)]
	contents := make([]string, len(hits))

	var g errgroup.Group
	for i, h := range hits {
		g.Go(func() error {
			text, err := s.fetcher.Fetch(ctx, h.URL)
			if err != nil {
				s.log.Debug("docs page unavailable", zap.String("url", h.URL), zap.Error(err))
				return nil
			}
			contents[i] = text
			return nil
		})
	}
	_ = g.Wait()

	var (
		sections []string
		sources  []knowledgeSource
	)
	for i, h := range hits {
		if contents[i] == "" {
			continue
		}
		sections = append(sections, "### "+h.Title+"\n"+contents[i])
		sources = append(sources, knowledgeSource{Title: h.Title, URL: h.URL})
	}

	if len(sections) == 0 {
		fallback := make([]knowledgeSource, len(hits))
		for i, h := range hits {
			fallback[i] = knowledgeSource{Title: orDefault(h.Title, "Stacks Documentation"), URL: h.URL}
		}
		return knowledgeOutput{Question: question, Answer: noContentAnswer, Sources: fallback}, nil
	}

	combined := strings.Join(sections, "\n\n")

	answer, err := s.synthesize(ctx, question, combined)
	if err != nil {
		return nil, fmt.Errorf("synthesize answer: %w", err)
	}

	return knowledgeOutput{
		Question:   question,
		Answer:     answer,
		RawContent: combined,
		Sources:    sources,
	}, nil
}

func (s *Stacks) synthesize(ctx context.Context, question, content string) (string, error) {
	if s.model == nil {
		return "", fmt.Errorf("no model configured")
	}

	c := chat.New("knowledge", message.NewText("", role.User, fmt.Sprintf(synthesisPrompt, question, content)))

	text, err := modeladapter.CollectText(ctx, s.model, c)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}
