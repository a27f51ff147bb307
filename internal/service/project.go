package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"multibot/internal/botkit"
	"multibot/internal/domain"
	"multibot/internal/fileparse"
	"multibot/internal/llm"
	"multibot/internal/repository"
	"multibot/internal/retrieval"
	"multibot/internal/telegram"
)

// ProjectService owns the lifecycle of tenant projects: creation, knowledge
// updates, token changes and deletion, together with the side effects in the
// vector store, the webhook registration and the runtime registry
type ProjectService struct {
	projects   repository.ProjectRepository
	registry   *botkit.Registry
	webhooks   *telegram.WebhookManager
	vectorizer *retrieval.Vectorizer
	qdrant     *retrieval.Qdrant
	llm        *llm.Client
	logger     *zap.Logger
}

// NewProjectService creates a project service
func NewProjectService(
	projects repository.ProjectRepository,
	registry *botkit.Registry,
	webhooks *telegram.WebhookManager,
	vectorizer *retrieval.Vectorizer,
	qdrant *retrieval.Qdrant,
	llmClient *llm.Client,
	logger *zap.Logger,
) *ProjectService {
	return &ProjectService{
		projects:   projects,
		registry:   registry,
		webhooks:   webhooks,
		vectorizer: vectorizer,
		qdrant:     qdrant,
		llm:        llmClient,
		logger:     logger,
	}
}

// Create registers a project, indexes its knowledge and points the bot's
// webhook at the platform. The project is stored even when Telegram rejects
// the webhook: a wrong token surfaces to the owner on the first message.
func (s *ProjectService) Create(ctx context.Context, telegramID int64, name, token, businessInfo string) (*domain.Project, error) {
	name = strings.TrimSpace(name)
	token = strings.TrimSpace(token)

	taken, err := s.projects.ProjectNameExists(telegramID, name)
	if err != nil {
		return nil, fmt.Errorf("check project name: %w", err)
	}
	if taken {
		return nil, ErrProjectNameTaken
	}

	existing, err := s.projects.GetProjectByToken(token)
	if err != nil {
		return nil, fmt.Errorf("check token: %w", err)
	}
	if existing != nil {
		return nil, ErrTokenInUse
	}

	info, err := s.llm.Summarize(ctx, businessInfo)
	if err != nil {
		info = businessInfo
	}

	id := uuid.NewString()
	project := &domain.Project{
		ID:             id,
		Name:           name,
		BusinessInfo:   info,
		Token:          token,
		CollectionName: "project_" + strings.ReplaceAll(id, "-", "_"),
		TelegramID:     telegramID,
	}

	if err := s.projects.CreateProject(project); err != nil {
		return nil, fmt.Errorf("store project: %w", err)
	}

	if err := s.indexKnowledge(ctx, project, info); err != nil {
		s.logger.Warn("knowledge indexing failed, answers will use raw business info",
			zap.String("project_id", project.ID), zap.Error(err))
	}

	if err := s.webhooks.SetWebhook(ctx, token, project.ID); err != nil {
		s.logger.Warn("webhook registration failed",
			zap.String("project_id", project.ID), zap.Error(err))
	}

	return project, nil
}

// Rename changes the project name, enforcing per-owner uniqueness
func (s *ProjectService) Rename(projectID string, telegramID int64, name string) error {
	name = strings.TrimSpace(name)

	taken, err := s.projects.ProjectNameExists(telegramID, name)
	if err != nil {
		return fmt.Errorf("check project name: %w", err)
	}
	if taken {
		return ErrProjectNameTaken
	}
	return s.projects.RenameProject(projectID, name)
}

// ChangeToken swaps the project's bot token: the old runtime is evicted,
// the old webhook removed and the new one registered
func (s *ProjectService) ChangeToken(ctx context.Context, projectID, newToken string) error {
	newToken = strings.TrimSpace(newToken)

	other, err := s.projects.GetProjectByToken(newToken)
	if err != nil {
		return fmt.Errorf("check token: %w", err)
	}
	if other != nil && other.ID != projectID {
		return ErrTokenInUse
	}

	project, err := s.projects.GetProjectByID(projectID)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return ErrProjectNotFound
	}

	if err := s.projects.UpdateToken(projectID, newToken); err != nil {
		return fmt.Errorf("update token: %w", err)
	}

	s.registry.Evict(project.Token)

	if err := s.webhooks.DeleteWebhook(ctx, project.Token); err != nil {
		s.logger.Warn("old webhook removal failed",
			zap.String("project_id", projectID), zap.Error(err))
	}
	if err := s.webhooks.SetWebhook(ctx, newToken, projectID); err != nil {
		s.logger.Warn("webhook registration failed",
			zap.String("project_id", projectID), zap.Error(err))
	}
	return nil
}

// ReplaceKnowledge throws away the indexed knowledge and replaces it with
// the given text
func (s *ProjectService) ReplaceKnowledge(ctx context.Context, projectID, text string) error {
	project, err := s.projects.GetProjectByID(projectID)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return ErrProjectNotFound
	}

	info, err := s.llm.Summarize(ctx, text)
	if err != nil {
		info = text
	}

	if err := s.projects.UpdateBusinessInfo(projectID, info); err != nil {
		return fmt.Errorf("update business info: %w", err)
	}

	if err := s.qdrant.DeleteCollection(ctx, project.CollectionName); err != nil {
		s.logger.Warn("collection reset failed",
			zap.String("project_id", projectID), zap.Error(err))
	}
	if err := s.indexKnowledge(ctx, project, info); err != nil {
		s.logger.Warn("knowledge indexing failed",
			zap.String("project_id", projectID), zap.Error(err))
	}
	return nil
}

// AppendKnowledge adds text to the project's knowledge without dropping
// what is already indexed
func (s *ProjectService) AppendKnowledge(ctx context.Context, projectID, text string) error {
	project, err := s.projects.GetProjectByID(projectID)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return ErrProjectNotFound
	}

	if err := s.projects.AppendBusinessInfo(projectID, text); err != nil {
		return fmt.Errorf("append business info: %w", err)
	}

	if err := s.indexKnowledge(ctx, project, text); err != nil {
		s.logger.Warn("knowledge indexing failed",
			zap.String("project_id", projectID), zap.Error(err))
	}
	return nil
}

// AddDocument parses an uploaded file and appends its text to the
// project's knowledge
func (s *ProjectService) AddDocument(ctx context.Context, projectID, filename string, data []byte) error {
	text, err := fileparse.Parse(filename, data)
	if err != nil {
		return err
	}
	if strings.TrimSpace(text) == "" {
		return fmt.Errorf("document %s contains no text", filename)
	}
	return s.AppendKnowledge(ctx, projectID, text)
}

// UpdateDesign stores the bot presentation settings
func (s *ProjectService) UpdateDesign(projectID string, design domain.Design) error {
	return s.projects.UpdateDesign(projectID, design)
}

// Delete removes the project with all side effects: webhook, runtime and
// vector collection
func (s *ProjectService) Delete(ctx context.Context, projectID string) error {
	project, err := s.projects.GetProjectByID(projectID)
	if err != nil {
		return fmt.Errorf("load project: %w", err)
	}
	if project == nil {
		return nil
	}

	if err := s.webhooks.DeleteWebhook(ctx, project.Token); err != nil {
		s.logger.Warn("webhook removal failed",
			zap.String("project_id", projectID), zap.Error(err))
	}
	s.registry.Evict(project.Token)

	if err := s.qdrant.DeleteCollection(ctx, project.CollectionName); err != nil {
		s.logger.Warn("collection removal failed",
			zap.String("project_id", projectID), zap.Error(err))
	}

	return s.projects.DeleteProject(projectID)
}

// SuspendAllForUser stops every project bot of one owner without touching
// the stored data: webhooks are removed and runtimes evicted, while the
// project rows and the vector collections stay. Paying re-enables the bots
// through SetWebhook. Returns how many projects were suspended.
func (s *ProjectService) SuspendAllForUser(ctx context.Context, telegramID int64) (int, error) {
	projects, err := s.projects.GetProjectsByUser(telegramID)
	if err != nil {
		return 0, fmt.Errorf("load projects: %w", err)
	}

	for _, p := range projects {
		if err := s.webhooks.DeleteWebhook(ctx, p.Token); err != nil {
			s.logger.Warn("webhook removal failed",
				zap.String("project_id", p.ID), zap.Error(err))
		}
		s.registry.Evict(p.Token)
	}
	return len(projects), nil
}

// ResumeAllForUser re-registers the webhooks of every project of one owner,
// used after a payment is confirmed
func (s *ProjectService) ResumeAllForUser(ctx context.Context, telegramID int64) error {
	projects, err := s.projects.GetProjectsByUser(telegramID)
	if err != nil {
		return fmt.Errorf("load projects: %w", err)
	}

	for _, p := range projects {
		if err := s.webhooks.SetWebhook(ctx, p.Token, p.ID); err != nil {
			s.logger.Warn("webhook registration failed",
				zap.String("project_id", p.ID), zap.Error(err))
		}
	}
	return nil
}

// DeleteAllForUser removes every project of one owner. Deletion is an
// explicit owner action; expired trials only suspend.
func (s *ProjectService) DeleteAllForUser(ctx context.Context, telegramID int64) error {
	projects, err := s.projects.GetProjectsByUser(telegramID)
	if err != nil {
		return fmt.Errorf("load projects: %w", err)
	}

	for _, p := range projects {
		if err := s.Delete(ctx, p.ID); err != nil {
			s.logger.Error("project deletion failed",
				zap.String("project_id", p.ID), zap.Error(err))
		}
	}
	return nil
}

// Get loads one project
func (s *ProjectService) Get(projectID string) (*domain.Project, error) {
	return s.projects.GetProjectByID(projectID)
}

// GetByToken loads the project owning a bot token
func (s *ProjectService) GetByToken(token string) (*domain.Project, error) {
	return s.projects.GetProjectByToken(token)
}

// List returns the owner's projects
func (s *ProjectService) List(telegramID int64) ([]domain.Project, error) {
	return s.projects.GetProjectsByUser(telegramID)
}

func (s *ProjectService) indexKnowledge(ctx context.Context, project *domain.Project, text string) error {
	if err := s.qdrant.EnsureCollection(ctx, project.CollectionName); err != nil {
		return err
	}

	chunks := fileparse.Chunks(text)
	points := make([]retrieval.Point, 0, len(chunks))
	for _, chunk := range chunks {
		vec, err := s.vectorizer.Vectorize(ctx, chunk)
		if err != nil {
			return fmt.Errorf("vectorize chunk: %w", err)
		}
		points = append(points, retrieval.Point{
			Vector:  vec,
			Payload: map[string]interface{}{"text": chunk},
		})
	}
	return s.qdrant.Upsert(ctx, project.CollectionName, points)
}
