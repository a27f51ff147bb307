package postgres

import (
	"database/sql"

	"multibot/internal/domain"
)

// ProjectRepo implements repository.ProjectRepository
type ProjectRepo struct {
	db *sql.DB
}

// NewProjectRepo creates a new project repository
func NewProjectRepo(db *sql.DB) *ProjectRepo {
	return &ProjectRepo{db: db}
}

const projectColumns = `
	id, name, business_info, welcome_message, token, collection_name, telegram_id,
	design_bot_name, design_avatar, design_welcome_text, design_welcome_image, design_description
`

// CreateProject inserts a new project row
func (r *ProjectRepo) CreateProject(p *domain.Project) error {
	query := `
		INSERT INTO projects (id, name, business_info, welcome_message, token, collection_name, telegram_id)
		VALUES ($1, $2, $3, NULLIF($4, ''), $5, $6, $7)
	`
	_, err := r.db.Exec(query, p.ID, p.Name, p.BusinessInfo, p.WelcomeMessage, p.Token, p.CollectionName, p.TelegramID)
	return err
}

// GetProjectByID returns the project or nil if not found
func (r *ProjectRepo) GetProjectByID(id string) (*domain.Project, error) {
	row := r.db.QueryRow(`SELECT `+projectColumns+` FROM projects WHERE id = $1`, id)
	return scanProject(row)
}

// GetProjectByToken returns the project owning a bot token, or nil
func (r *ProjectRepo) GetProjectByToken(token string) (*domain.Project, error) {
	row := r.db.QueryRow(`SELECT `+projectColumns+` FROM projects WHERE token = $1`, token)
	return scanProject(row)
}

// GetProjectsByUser returns all projects of one owner
func (r *ProjectRepo) GetProjectsByUser(telegramID int64) ([]domain.Project, error) {
	rows, err := r.db.Query(`SELECT `+projectColumns+` FROM projects WHERE telegram_id = $1 ORDER BY name`, telegramID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var projects []domain.Project
	for rows.Next() {
		p, err := scanProjectRow(rows)
		if err != nil {
			return nil, err
		}
		projects = append(projects, *p)
	}
	return projects, rows.Err()
}

// ProjectNameExists checks per-owner name uniqueness
func (r *ProjectRepo) ProjectNameExists(telegramID int64, name string) (bool, error) {
	var exists bool
	query := `SELECT EXISTS(SELECT 1 FROM projects WHERE telegram_id = $1 AND LOWER(name) = LOWER($2))`
	err := r.db.QueryRow(query, telegramID, name).Scan(&exists)
	return exists, err
}

// RenameProject updates the project name
func (r *ProjectRepo) RenameProject(id, name string) error {
	_, err := r.db.Exec(`UPDATE projects SET name = $2 WHERE id = $1`, id, name)
	return err
}

// UpdateToken replaces the project's bot token
func (r *ProjectRepo) UpdateToken(id, token string) error {
	_, err := r.db.Exec(`UPDATE projects SET token = $2 WHERE id = $1`, id, token)
	return err
}

// UpdateBusinessInfo replaces the knowledge text
func (r *ProjectRepo) UpdateBusinessInfo(id, businessInfo string) error {
	_, err := r.db.Exec(`UPDATE projects SET business_info = $2 WHERE id = $1`, id, businessInfo)
	return err
}

// AppendBusinessInfo adds to the knowledge text
func (r *ProjectRepo) AppendBusinessInfo(id, extra string) error {
	query := `UPDATE projects SET business_info = business_info || E'\n' || $2 WHERE id = $1`
	_, err := r.db.Exec(query, id, extra)
	return err
}

// UpdateDesign stores the presentation settings
func (r *ProjectRepo) UpdateDesign(id string, d domain.Design) error {
	query := `
		UPDATE projects SET
			design_bot_name = NULLIF($2, ''),
			design_avatar = NULLIF($3, ''),
			design_welcome_text = NULLIF($4, ''),
			design_welcome_image = NULLIF($5, ''),
			design_description = NULLIF($6, '')
		WHERE id = $1
	`
	_, err := r.db.Exec(query, id, d.BotName, d.AvatarFileID, d.WelcomeText, d.WelcomeImage, d.Description)
	return err
}

// DeleteProject removes the project; forms cascade at the schema level
func (r *ProjectRepo) DeleteProject(id string) error {
	_, err := r.db.Exec(`DELETE FROM projects WHERE id = $1`, id)
	return err
}

// DeleteProjectsByUser removes all projects of one owner
func (r *ProjectRepo) DeleteProjectsByUser(telegramID int64) error {
	_, err := r.db.Exec(`DELETE FROM projects WHERE telegram_id = $1`, telegramID)
	return err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanProject(row *sql.Row) (*domain.Project, error) {
	p, err := scanProjectRow(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func scanProjectRow(row rowScanner) (*domain.Project, error) {
	var p domain.Project
	var welcome, botName, avatar, welcomeText, welcomeImage, description sql.NullString
	err := row.Scan(
		&p.ID, &p.Name, &p.BusinessInfo, &welcome, &p.Token, &p.CollectionName, &p.TelegramID,
		&botName, &avatar, &welcomeText, &welcomeImage, &description,
	)
	if err != nil {
		return nil, err
	}
	p.WelcomeMessage = welcome.String
	p.Design = domain.Design{
		BotName:      botName.String,
		AvatarFileID: avatar.String,
		WelcomeText:  welcomeText.String,
		WelcomeImage: welcomeImage.String,
		Description:  description.String,
	}
	return &p, nil
}
