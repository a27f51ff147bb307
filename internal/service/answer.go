package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"multibot/internal/domain"
	"multibot/internal/llm"
	"multibot/internal/repository"
	"multibot/internal/retrieval"
)

// searchLimit caps how many knowledge chunks feed one answer
const searchLimit = 5

// AnswerService turns a customer question into a reply: embed, search the
// project's collection, prompt the model, extract the question theme
type AnswerService struct {
	llm        *llm.Client
	vectorizer *retrieval.Vectorizer
	qdrant     *retrieval.Qdrant
	stats      repository.StatsRepository
	users      repository.UserRepository
	logger     *zap.Logger
}

// NewAnswerService creates an answer service
func NewAnswerService(
	llmClient *llm.Client,
	vectorizer *retrieval.Vectorizer,
	qdrant *retrieval.Qdrant,
	stats repository.StatsRepository,
	users repository.UserRepository,
	logger *zap.Logger,
) *AnswerService {
	return &AnswerService{
		llm:        llmClient,
		vectorizer: vectorizer,
		qdrant:     qdrant,
		stats:      stats,
		users:      users,
		logger:     logger,
	}
}

// Answer produces the reply text for one customer question and records
// the message statistics
func (s *AnswerService) Answer(ctx context.Context, project *domain.Project, telegramID int64, question string) (string, error) {
	start := time.Now()

	chunks := s.searchKnowledge(ctx, project, question)

	system := buildAnswerPrompt(project, chunks)
	raw, err := s.llm.Complete(ctx, system, question, 0.7)
	if err != nil {
		return "", fmt.Errorf("generate answer: %w", err)
	}

	theme, answer := llm.ExtractTheme(raw)

	stat := &domain.MessageStat{
		ProjectID:    project.ID,
		TelegramID:   telegramID,
		Theme:        theme,
		ResponseTime: time.Since(start).Seconds(),
		CreatedAt:    time.Now(),
	}
	s.fillPlanFlags(stat, project)
	if err := s.stats.LogMessage(stat); err != nil {
		s.logger.Warn("message stat logging failed",
			zap.String("project_id", project.ID), zap.Error(err))
	}

	return answer, nil
}

// LogCommand records a command message (like /start) in the stats; commands
// carry no theme and no response time
func (s *AnswerService) LogCommand(project *domain.Project, telegramID int64) {
	stat := &domain.MessageStat{
		ProjectID:  project.ID,
		TelegramID: telegramID,
		IsCommand:  true,
		CreatedAt:  time.Now(),
	}
	s.fillPlanFlags(stat, project)
	if err := s.stats.LogMessage(stat); err != nil {
		s.logger.Warn("message stat logging failed",
			zap.String("project_id", project.ID), zap.Error(err))
	}
}

// fillPlanFlags stamps the stat with the project owner's billing plan
func (s *AnswerService) fillPlanFlags(stat *domain.MessageStat, project *domain.Project) {
	owner, err := s.users.GetUser(project.TelegramID)
	if err != nil {
		s.logger.Warn("owner lookup failed",
			zap.String("project_id", project.ID), zap.Error(err))
		return
	}
	if owner == nil {
		return
	}
	stat.IsPaid = owner.Paid
	stat.IsTrial = !owner.Paid
}

// searchKnowledge returns the most relevant indexed chunks; on any failure
// the answer falls back to the stored business info alone
func (s *AnswerService) searchKnowledge(ctx context.Context, project *domain.Project, question string) []string {
	vec, err := s.vectorizer.Vectorize(ctx, question)
	if err != nil {
		s.logger.Warn("question vectorization failed",
			zap.String("project_id", project.ID), zap.Error(err))
		return nil
	}

	hits, err := s.qdrant.Search(ctx, project.CollectionName, vec, searchLimit)
	if err != nil {
		s.logger.Warn("knowledge search failed",
			zap.String("project_id", project.ID), zap.Error(err))
		return nil
	}

	chunks := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.Text != "" {
			chunks = append(chunks, h.Text)
		}
	}
	return chunks
}

func buildAnswerPrompt(project *domain.Project, chunks []string) string {
	var sb strings.Builder

	name := project.Design.BotName
	if name == "" {
		name = project.Name
	}

	sb.WriteString("Ты — ассистент бизнеса «" + name + "». ")
	sb.WriteString("Отвечай на вопросы клиентов кратко и дружелюбно, только на основе информации ниже. ")
	sb.WriteString("Если ответа в информации нет, честно скажи об этом и предложи связаться с владельцем.\n\n")

	sb.WriteString("Информация о бизнесе:\n")
	sb.WriteString(project.BusinessInfo)
	sb.WriteString("\n")

	if len(chunks) > 0 {
		sb.WriteString("\nНаиболее релевантные факты:\n")
		for _, chunk := range chunks {
			sb.WriteString("- " + chunk + "\n")
		}
	}

	sb.WriteString("\nВ самом конце ответа добавь тег [THEME:тема вопроса в двух-трёх словах].")
	return sb.String()
}
