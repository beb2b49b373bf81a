package docstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"bingetracker/models"
)

const bingeColumns = `id, user_id, name, entertainment_list, last_updated`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanBinge(row rowScanner) (models.BingeDocument, error) {
	var (
		doc     models.BingeDocument
		rawList string
		updated int64
	)
	if err := row.Scan(&doc.ID, &doc.UserID, &doc.Name, &rawList, &updated); err != nil {
		return models.BingeDocument{}, err
	}
	if err := json.Unmarshal([]byte(rawList), &doc.EntertainmentList); err != nil {
		return models.BingeDocument{}, fmt.Errorf("decode entertainment list of %s: %w", doc.ID, err)
	}
	if doc.EntertainmentList == nil {
		doc.EntertainmentList = []models.StoredEntertainmentItem{}
	}
	doc.LastUpdated = fromMillis(updated)
	return doc, nil
}

func encodeList(list []models.StoredEntertainmentItem) (string, error) {
	if list == nil {
		list = []models.StoredEntertainmentItem{}
	}
	data, err := json.Marshal(list)
	if err != nil {
		return "", fmt.Errorf("encode entertainment list: %w", err)
	}
	return string(data), nil
}

// CreateBinge inserts a new document with a generated id and returns it.
func (s *Store) CreateBinge(ctx context.Context, userID, name string, list []models.StoredEntertainmentItem) (models.BingeDocument, error) {
	raw, err := encodeList(list)
	if err != nil {
		return models.BingeDocument{}, err
	}
	doc := models.BingeDocument{
		ID:                uuid.NewString(),
		UserID:            userID,
		Name:              name,
		EntertainmentList: list,
		LastUpdated:       s.now().UTC(),
	}
	if doc.EntertainmentList == nil {
		doc.EntertainmentList = []models.StoredEntertainmentItem{}
	}

	_, err = s.db.ExecContext(ctx, s.rebind(`INSERT INTO binges (`+bingeColumns+`) VALUES (?, ?, ?, ?, ?)`),
		doc.ID, doc.UserID, doc.Name, raw, toMillis(doc.LastUpdated))
	if err != nil {
		return models.BingeDocument{}, fmt.Errorf("docstore: insert binge: %w", err)
	}
	doc.LastUpdated = fromMillis(toMillis(doc.LastUpdated))
	return doc, nil
}

// GetBinge loads one binge document.
func (s *Store) GetBinge(ctx context.Context, id string) (models.BingeDocument, error) {
	row := s.db.QueryRowContext(ctx, s.rebind(`SELECT `+bingeColumns+` FROM binges WHERE id = ?`), id)
	doc, err := scanBinge(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.BingeDocument{}, ErrNotFound
	}
	if err != nil {
		return models.BingeDocument{}, fmt.Errorf("docstore: get binge %s: %w", id, err)
	}
	return doc, nil
}

// ListBingesByUser returns every binge owned by userID in insertion order.
func (s *Store) ListBingesByUser(ctx context.Context, userID string) ([]models.BingeDocument, error) {
	rows, err := s.db.QueryContext(ctx, s.rebind(`SELECT `+bingeColumns+` FROM binges WHERE user_id = ? ORDER BY last_updated, id`), userID)
	if err != nil {
		return nil, fmt.Errorf("docstore: list binges: %w", err)
	}
	defer rows.Close()

	var docs []models.BingeDocument
	for rows.Next() {
		doc, err := scanBinge(rows)
		if err != nil {
			return nil, fmt.Errorf("docstore: scan binge: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("docstore: list binges: %w", err)
	}
	return docs, nil
}

// SetEntertainmentList overwrites a binge's whole item list outside any
// transaction. Concurrent writers are not detected; the last one wins.
func (s *Store) SetEntertainmentList(ctx context.Context, id string, list []models.StoredEntertainmentItem) error {
	raw, err := encodeList(list)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE binges SET entertainment_list = ?, last_updated = ? WHERE id = ?`),
		raw, toMillis(s.now()), id)
	if err != nil {
		return fmt.Errorf("docstore: set entertainment list: %w", err)
	}
	return requireAffected(res)
}

// UpdateBinge runs fn against the current document inside a transaction and
// writes the item list back. lastUpdated is refreshed in the same
// transaction. If fn returns an error nothing is written.
func (s *Store) UpdateBinge(ctx context.Context, id string, fn func(*models.BingeDocument) error) (models.BingeDocument, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.BingeDocument{}, fmt.Errorf("docstore: begin: %w", err)
	}
	defer tx.Rollback()

	query := `SELECT ` + bingeColumns + ` FROM binges WHERE id = ?`
	if s.driver == DriverPostgres {
		query += ` FOR UPDATE`
	}
	doc, err := scanBinge(tx.QueryRowContext(ctx, s.rebind(query), id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.BingeDocument{}, ErrNotFound
	}
	if err != nil {
		return models.BingeDocument{}, fmt.Errorf("docstore: read binge %s: %w", id, err)
	}

	if err := fn(&doc); err != nil {
		return models.BingeDocument{}, err
	}

	raw, err := encodeList(doc.EntertainmentList)
	if err != nil {
		return models.BingeDocument{}, err
	}
	doc.LastUpdated = fromMillis(toMillis(s.now()))
	if _, err := tx.ExecContext(ctx, s.rebind(`UPDATE binges SET entertainment_list = ?, last_updated = ? WHERE id = ?`),
		raw, toMillis(doc.LastUpdated), id); err != nil {
		return models.BingeDocument{}, fmt.Errorf("docstore: write binge %s: %w", id, err)
	}
	if err := tx.Commit(); err != nil {
		return models.BingeDocument{}, fmt.Errorf("docstore: commit: %w", err)
	}
	return doc, nil
}

// TouchBinge sets lastUpdated to now.
func (s *Store) TouchBinge(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, s.rebind(`UPDATE binges SET last_updated = ? WHERE id = ?`), toMillis(s.now()), id)
	if err != nil {
		return fmt.Errorf("docstore: touch binge: %w", err)
	}
	return requireAffected(res)
}

// DeleteBinge removes a binge. Deleting a missing binge is not an error.
func (s *Store) DeleteBinge(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, s.rebind(`DELETE FROM binges WHERE id = ?`), id); err != nil {
		return fmt.Errorf("docstore: delete binge: %w", err)
	}
	return nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("docstore: rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
