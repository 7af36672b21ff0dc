package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/ekaya-inc/ekaya-datasource/pkg/apperrors"
	"github.com/ekaya-inc/ekaya-datasource/pkg/database"
	"github.com/ekaya-inc/ekaya-datasource/pkg/models"
	"github.com/ekaya-inc/ekaya-datasource/pkg/permission"
)

// DatasourceRepository is the record store for datasources and their grants.
// ConnectionParams is stored as canonical JSON; password encoding is handled
// by the builder before records reach the store.
type DatasourceRepository interface {
	// Insert stores a new datasource and assigns its id. Returns apperrors.ErrConflict
	// if the name is taken.
	Insert(ctx context.Context, ds *models.Datasource) error

	// UpdateByID rewrites name, note, type and parameters. Returns apperrors.ErrConflict
	// on a name collision and apperrors.ErrNotFound if the id is absent.
	UpdateByID(ctx context.Context, ds *models.Datasource) error

	// DeleteByID removes a datasource together with its grants.
	DeleteByID(ctx context.Context, id uuid.UUID) error

	// SelectByID returns apperrors.ErrNotFound if the id is absent.
	SelectByID(ctx context.Context, id uuid.UUID) (*models.Datasource, error)

	// QueryByName returns every datasource with exactly this name.
	QueryByName(ctx context.Context, name string) ([]*models.Datasource, error)

	// SelectByMap returns datasources matching every non-nil filter field.
	SelectByMap(ctx context.Context, filter models.DatasourceFilter) ([]*models.Datasource, error)

	// SelectPagingByIDs pages through datasources whose name contains search.
	// A nil ids slice means no id restriction.
	SelectPagingByIDs(ctx context.Context, ids []uuid.UUID, search string, req models.PageRequest) (*models.Page[*models.Datasource], error)

	// SelectBatchIDs returns the datasources with the given ids that still exist.
	SelectBatchIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Datasource, error)

	// QueryAuthedDatasource returns the datasources granted to userID.
	QueryAuthedDatasource(ctx context.Context, userID uuid.UUID) ([]*models.Datasource, error)

	// QueryDatasourceExceptUserID returns the datasources not owned by userID.
	QueryDatasourceExceptUserID(ctx context.Context, userID uuid.UUID) ([]*models.Datasource, error)

	// GrantDatasources replaces userID's grant set with ids.
	GrantDatasources(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error

	permission.ResourceStore
}

const datasourceColumns = `d.id, d.name, d.note, d.type, d.user_id, d.user_name, d.connection_params, d.created_at, d.updated_at`

type datasourceRepository struct {
	db *database.DB
}

// NewDatasourceRepository creates a datasource repository backed by db.
func NewDatasourceRepository(db *database.DB) DatasourceRepository {
	return &datasourceRepository{db: db}
}

func (r *datasourceRepository) Insert(ctx context.Context, ds *models.Datasource) error {
	now := time.Now()
	ds.CreatedAt = now
	ds.UpdatedAt = now
	if ds.ID == uuid.Nil {
		ds.ID = uuid.New()
	}

	query := `
		INSERT INTO datasources (id, name, note, type, user_id, user_name, connection_params, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	_, err := r.db.Exec(ctx, query,
		ds.ID,
		ds.Name,
		ds.Note,
		string(ds.Type),
		ds.UserID,
		ds.UserName,
		ds.ConnectionParams,
		ds.CreatedAt,
		ds.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to insert datasource: %w", err)
	}
	return nil
}

func (r *datasourceRepository) UpdateByID(ctx context.Context, ds *models.Datasource) error {
	ds.UpdatedAt = time.Now()

	query := `
		UPDATE datasources
		SET name = $2, note = $3, type = $4, connection_params = $5, updated_at = $6
		WHERE id = $1`

	tag, err := r.db.Exec(ctx, query,
		ds.ID,
		ds.Name,
		ds.Note,
		string(ds.Type),
		ds.ConnectionParams,
		ds.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("failed to update datasource: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return apperrors.ErrNotFound
	}
	return nil
}

func (r *datasourceRepository) DeleteByID(ctx context.Context, id uuid.UUID) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM datasource_user WHERE datasource_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete datasource grants: %w", err)
		}
		tag, err := tx.Exec(ctx, `DELETE FROM datasources WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete datasource: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return apperrors.ErrNotFound
		}
		return nil
	})
}

func (r *datasourceRepository) SelectByID(ctx context.Context, id uuid.UUID) (*models.Datasource, error) {
	query := `SELECT ` + datasourceColumns + ` FROM datasources d WHERE d.id = $1`

	ds, err := scanDatasource(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to get datasource: %w", err)
	}
	return ds, nil
}

func (r *datasourceRepository) QueryByName(ctx context.Context, name string) ([]*models.Datasource, error) {
	query := `SELECT ` + datasourceColumns + ` FROM datasources d WHERE d.name = $1`
	return r.queryDatasources(ctx, query, name)
}

func (r *datasourceRepository) SelectByMap(ctx context.Context, filter models.DatasourceFilter) ([]*models.Datasource, error) {
	var conditions []string
	var args []any
	argIdx := 1

	if filter.UserID != nil {
		conditions = append(conditions, fmt.Sprintf("d.user_id = $%d", argIdx))
		args = append(args, *filter.UserID)
		argIdx++
	}
	if filter.Type != nil {
		conditions = append(conditions, fmt.Sprintf("d.type = $%d", argIdx))
		args = append(args, string(*filter.Type))
	}

	query := `SELECT ` + datasourceColumns + ` FROM datasources d`
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY d.updated_at DESC"

	return r.queryDatasources(ctx, query, args...)
}

func (r *datasourceRepository) SelectPagingByIDs(ctx context.Context, ids []uuid.UUID, search string, req models.PageRequest) (*models.Page[*models.Datasource], error) {
	var conditions []string
	var args []any
	argIdx := 1

	if ids != nil {
		conditions = append(conditions, fmt.Sprintf("d.id = ANY($%d)", argIdx))
		args = append(args, ids)
		argIdx++
	}
	if search != "" {
		conditions = append(conditions, fmt.Sprintf(`d.name ILIKE $%d ESCAPE '\'`, argIdx))
		args = append(args, "%"+escapeLike(search)+"%")
		argIdx++
	}

	where := ""
	if len(conditions) > 0 {
		where = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM datasources d`+where, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("failed to count datasources: %w", err)
	}

	query := `SELECT ` + datasourceColumns + ` FROM datasources d` + where +
		fmt.Sprintf(" ORDER BY d.updated_at DESC, d.id LIMIT $%d OFFSET $%d", argIdx, argIdx+1)
	args = append(args, req.PageSize, req.Offset())

	items, err := r.queryDatasources(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return models.NewPage(items, total, req), nil
}

func (r *datasourceRepository) SelectBatchIDs(ctx context.Context, ids []uuid.UUID) ([]*models.Datasource, error) {
	if len(ids) == 0 {
		return []*models.Datasource{}, nil
	}
	query := `SELECT ` + datasourceColumns + ` FROM datasources d WHERE d.id = ANY($1) ORDER BY d.name`
	return r.queryDatasources(ctx, query, ids)
}

func (r *datasourceRepository) QueryAuthedDatasource(ctx context.Context, userID uuid.UUID) ([]*models.Datasource, error) {
	query := `
		SELECT ` + datasourceColumns + `
		FROM datasources d
		JOIN datasource_user du ON du.datasource_id = d.id
		WHERE du.user_id = $1
		ORDER BY d.name`
	return r.queryDatasources(ctx, query, userID)
}

func (r *datasourceRepository) QueryDatasourceExceptUserID(ctx context.Context, userID uuid.UUID) ([]*models.Datasource, error) {
	query := `SELECT ` + datasourceColumns + ` FROM datasources d WHERE d.user_id <> $1 ORDER BY d.name`
	return r.queryDatasources(ctx, query, userID)
}

func (r *datasourceRepository) GrantDatasources(ctx context.Context, userID uuid.UUID, ids []uuid.UUID) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM datasource_user WHERE user_id = $1`, userID); err != nil {
			return fmt.Errorf("failed to clear datasource grants: %w", err)
		}
		if len(ids) == 0 {
			return nil
		}
		query := `
			INSERT INTO datasource_user (user_id, datasource_id, created_at)
			SELECT $1, unnest($2::uuid[]), now()
			ON CONFLICT DO NOTHING`
		if _, err := tx.Exec(ctx, query, userID, ids); err != nil {
			return fmt.Errorf("failed to grant datasources: %w", err)
		}
		return nil
	})
}

func (r *datasourceRepository) OwnedDatasourceIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	return r.queryIDs(ctx, `SELECT id FROM datasources WHERE user_id = $1`, userID)
}

func (r *datasourceRepository) GrantedDatasourceIDs(ctx context.Context, userID uuid.UUID) ([]uuid.UUID, error) {
	query := `
		SELECT d.id
		FROM datasource_user du
		JOIN datasources d ON d.id = du.datasource_id
		WHERE du.user_id = $1`
	return r.queryIDs(ctx, query, userID)
}

func (r *datasourceRepository) queryDatasources(ctx context.Context, query string, args ...any) ([]*models.Datasource, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasources: %w", err)
	}
	defer rows.Close()

	datasources := make([]*models.Datasource, 0)
	for rows.Next() {
		ds, err := scanDatasource(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan datasource: %w", err)
		}
		datasources = append(datasources, ds)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating datasources: %w", err)
	}
	return datasources, nil
}

func (r *datasourceRepository) queryIDs(ctx context.Context, query string, userID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := r.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query datasource ids: %w", err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
	if err != nil {
		return nil, fmt.Errorf("failed to collect datasource ids: %w", err)
	}
	return ids, nil
}

func scanDatasource(row pgx.Row) (*models.Datasource, error) {
	var ds models.Datasource
	var dbType string
	err := row.Scan(
		&ds.ID,
		&ds.Name,
		&ds.Note,
		&dbType,
		&ds.UserID,
		&ds.UserName,
		&ds.ConnectionParams,
		&ds.CreatedAt,
		&ds.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if ds.Type, err = models.ParseDbType(dbType); err != nil {
		return nil, fmt.Errorf("datasource %s: %w", ds.ID, err)
	}
	return &ds, nil
}

// isUniqueViolation reports a PostgreSQL unique constraint violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

var _ DatasourceRepository = (*datasourceRepository)(nil)
