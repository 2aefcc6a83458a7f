package store

import (
	"context"
	"errors"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"decisiondeck/internal/models"
)

// Postgres 基于 pgxpool + squirrel + scany 的实现。
type Postgres struct {
	pool *pgxpool.Pool
	sb   sq.StatementBuilderType
}

func NewPostgres(pool *pgxpool.Pool) *Postgres {
	return &Postgres{
		pool: pool,
		sb:   sq.StatementBuilder.PlaceholderFormat(sq.Dollar),
	}
}

func translate(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrNotFound
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrDuplicate
	}
	return err
}

// --- users ---

func (p *Postgres) CreateUser(ctx context.Context, u *models.User) error {
	q, args, err := p.sb.Insert("users").
		Columns("id", "handle", "email", "password", "role", "status",
			"votes_cast", "positions_voted", "created_at", "updated_at").
		Values(u.Id, u.Handle, u.Email, u.Password, string(u.Role), u.Status,
			u.VotesCast, u.PositionsVoted, u.CreatedAt, u.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, q, args...)
	return translate(err)
}

func (p *Postgres) UserById(ctx context.Context, id string) (*models.User, error) {
	return p.oneUser(ctx, sq.Eq{"id": id})
}

func (p *Postgres) UserByEmail(ctx context.Context, email string) (*models.User, error) {
	return p.oneUser(ctx, sq.Eq{"email": email})
}

func (p *Postgres) oneUser(ctx context.Context, pred any) (*models.User, error) {
	q, args, err := p.sb.Select("*").From("users").Where(pred).ToSql()
	if err != nil {
		return nil, err
	}
	var u models.User
	if err := pgxscan.Get(ctx, p.pool, &u, q, args...); err != nil {
		return nil, translate(err)
	}
	return &u, nil
}

func (p *Postgres) ListUsers(ctx context.Context, limit, offset int) ([]*models.User, error) {
	b := p.sb.Select("*").From("users").OrderBy("created_at DESC")
	if limit > 0 {
		b = b.Limit(uint64(limit)).Offset(uint64(offset))
	}
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	var out []*models.User
	if err := pgxscan.Select(ctx, p.pool, &out, q, args...); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (p *Postgres) UpdateUserRole(ctx context.Context, id string, role models.UserRole) error {
	return p.updateUser(ctx, id, sq.Eq{"role": string(role)})
}

func (p *Postgres) UpdateUserStatus(ctx context.Context, id string, status models.UserStatus) error {
	return p.updateUser(ctx, id, sq.Eq{"status": status})
}

func (p *Postgres) TouchLastLogin(ctx context.Context, id string, at time.Time) error {
	return p.updateUser(ctx, id, sq.Eq{"last_login_at": at})
}

func (p *Postgres) updateUser(ctx context.Context, id string, set map[string]any) error {
	b := p.sb.Update("users").Where(sq.Eq{"id": id}).Set("updated_at", time.Now())
	for k, v := range set {
		b = b.Set(k, v)
	}
	q, args, err := b.ToSql()
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, q, args...)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) BumpVoterCounters(ctx context.Context, voterId string, newPosition bool) error {
	b := p.sb.Update("users").
		Set("votes_cast", sq.Expr("votes_cast + 1")).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": voterId})
	if newPosition {
		b = b.Set("positions_voted", sq.Expr("positions_voted + 1"))
	}
	q, args, err := b.ToSql()
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, q, args...)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) CountActiveUsers(ctx context.Context) (int, error) {
	q, args, err := p.sb.Select("COUNT(*)").From("users").
		Where(sq.Eq{"status": models.UserStatusActive}).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := pgxscan.Get(ctx, p.pool, &n, q, args...); err != nil {
		return 0, translate(err)
	}
	return n, nil
}

// --- candidates ---

func (p *Postgres) CreateCandidate(ctx context.Context, c *models.Candidate) error {
	q, args, err := p.sb.Insert("candidates").
		Columns("id", "name", "position", "party", "description", "image_url",
			"status", "vote_count", "created_at", "updated_at").
		Values(c.Id, c.Name, c.Position, c.Party, c.Description, c.ImageUrl,
			c.Status, c.VoteCount, c.CreatedAt, c.UpdatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, q, args...)
	return translate(err)
}

func (p *Postgres) CandidateById(ctx context.Context, id string) (*models.Candidate, error) {
	q, args, err := p.sb.Select("*").From("candidates").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var c models.Candidate
	if err := pgxscan.Get(ctx, p.pool, &c, q, args...); err != nil {
		return nil, translate(err)
	}
	return &c, nil
}

func (p *Postgres) CandidatesByPosition(ctx context.Context, position string, activeOnly bool) ([]*models.Candidate, error) {
	b := p.sb.Select("*").From("candidates").Where(sq.Eq{"position": position})
	if activeOnly {
		b = b.Where(sq.Eq{"status": models.CandidateStatusActive})
	}
	return p.selectCandidates(ctx, b.OrderBy("vote_count DESC", "name ASC"))
}

func (p *Postgres) ListCandidates(ctx context.Context, activeOnly bool) ([]*models.Candidate, error) {
	b := p.sb.Select("*").From("candidates")
	if activeOnly {
		b = b.Where(sq.Eq{"status": models.CandidateStatusActive})
	}
	return p.selectCandidates(ctx, b.OrderBy("position ASC", "vote_count DESC", "name ASC"))
}

func (p *Postgres) selectCandidates(ctx context.Context, b sq.SelectBuilder) ([]*models.Candidate, error) {
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	var out []*models.Candidate
	if err := pgxscan.Select(ctx, p.pool, &out, q, args...); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (p *Postgres) UpdateCandidate(ctx context.Context, c *models.Candidate) error {
	q, args, err := p.sb.Update("candidates").
		Set("name", c.Name).
		Set("party", c.Party).
		Set("description", c.Description).
		Set("image_url", c.ImageUrl).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": c.Id}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, q, args...)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) SetCandidateStatus(ctx context.Context, id string, status models.CandidateStatus) error {
	q, args, err := p.sb.Update("candidates").
		Set("status", status).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": id}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, q, args...)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (p *Postgres) Positions(ctx context.Context) ([]string, error) {
	q, args, err := p.sb.Select("DISTINCT position").From("candidates").
		OrderBy("position ASC").ToSql()
	if err != nil {
		return nil, err
	}
	var out []string
	if err := pgxscan.Select(ctx, p.pool, &out, q, args...); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (p *Postgres) IncrementVoteCount(ctx context.Context, candidateId string) (int, error) {
	return p.adjustVoteCount(ctx, candidateId, "vote_count + 1")
}

func (p *Postgres) DecrementVoteCount(ctx context.Context, candidateId string) (int, error) {
	// 下限为零
	return p.adjustVoteCount(ctx, candidateId, "GREATEST(vote_count - 1, 0)")
}

func (p *Postgres) adjustVoteCount(ctx context.Context, candidateId, expr string) (int, error) {
	q, args, err := p.sb.Update("candidates").
		Set("vote_count", sq.Expr(expr)).
		Set("updated_at", time.Now()).
		Where(sq.Eq{"id": candidateId}).
		Suffix("RETURNING vote_count").
		ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := pgxscan.Get(ctx, p.pool, &n, q, args...); err != nil {
		return 0, translate(err)
	}
	return n, nil
}

// --- votes ---

func (p *Postgres) InsertVote(ctx context.Context, v *models.Vote) error {
	q, args, err := p.sb.Insert("votes").
		Columns("id", "voter_id", "candidate_id", "position", "ip", "ip_hash",
			"device", "valid", "created_at").
		Values(v.Id, v.VoterId, v.CandidateId, v.Position, v.Ip, v.IpHash,
			string(v.Device), v.Valid, v.CreatedAt).
		ToSql()
	if err != nil {
		return err
	}
	_, err = p.pool.Exec(ctx, q, args...)
	return translate(err)
}

func (p *Postgres) VoteById(ctx context.Context, id string) (*models.Vote, error) {
	q, args, err := p.sb.Select("*").From("votes").Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}
	var v models.Vote
	if err := pgxscan.Get(ctx, p.pool, &v, q, args...); err != nil {
		return nil, translate(err)
	}
	return &v, nil
}

func (p *Postgres) MarkVoteInvalid(ctx context.Context, id string, at time.Time) error {
	q, args, err := p.sb.Update("votes").
		Set("valid", false).
		Set("invalidated_at", at).
		Where(sq.Eq{"id": id, "valid": true}).
		ToSql()
	if err != nil {
		return err
	}
	tag, err := p.pool.Exec(ctx, q, args...)
	if err != nil {
		return translate(err)
	}
	if tag.RowsAffected() == 0 {
		if _, err := p.VoteById(ctx, id); err != nil {
			return err
		}
		return ErrConflict
	}
	return nil
}

func (p *Postgres) ListVotes(ctx context.Context, f VoteFilter) ([]*models.Vote, error) {
	b := applyVoteFilter(p.sb.Select("*").From("votes"), f).
		OrderBy("created_at DESC")
	if f.Limit > 0 {
		b = b.Limit(uint64(f.Limit)).Offset(uint64(f.Offset))
	}
	q, args, err := b.ToSql()
	if err != nil {
		return nil, err
	}
	var out []*models.Vote
	if err := pgxscan.Select(ctx, p.pool, &out, q, args...); err != nil {
		return nil, translate(err)
	}
	return out, nil
}

func (p *Postgres) CountVotes(ctx context.Context, f VoteFilter) (int, error) {
	f.Limit, f.Offset = 0, 0
	q, args, err := applyVoteFilter(p.sb.Select("COUNT(*)").From("votes"), f).ToSql()
	if err != nil {
		return 0, err
	}
	var n int
	if err := pgxscan.Get(ctx, p.pool, &n, q, args...); err != nil {
		return 0, translate(err)
	}
	return n, nil
}

func applyVoteFilter(b sq.SelectBuilder, f VoteFilter) sq.SelectBuilder {
	if f.VoterId != "" {
		b = b.Where(sq.Eq{"voter_id": f.VoterId})
	}
	if f.CandidateId != "" {
		b = b.Where(sq.Eq{"candidate_id": f.CandidateId})
	}
	if f.Position != "" {
		b = b.Where(sq.Eq{"position": f.Position})
	}
	if f.ValidOnly {
		b = b.Where(sq.Eq{"valid": true})
	}
	if !f.From.IsZero() {
		b = b.Where(sq.GtOrEq{"created_at": f.From})
	}
	if !f.To.IsZero() {
		b = b.Where(sq.Lt{"created_at": f.To})
	}
	return b
}
