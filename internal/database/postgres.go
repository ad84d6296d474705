package database

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/roomlet/messaging/internal/models"
)

var (
	ErrUserNotFound    = errors.New("user not found")
	ErrListingNotFound = errors.New("listing not found")
	ErrMessageNotFound = errors.New("message not found")
)

type PostgresDB struct {
	*sql.DB
}

func NewPostgresDB(connStr string) (*PostgresDB, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PostgresDB{db}, nil
}

// CreateMessage appends a message to the log. Sender, receiver and listing
// are resolved first so a dangling reference fails before the insert; the
// timestamp is assigned here, not by the client.
func (db *PostgresDB) CreateMessage(senderID, receiverID, listingID uuid.UUID, content string) (*models.Message, error) {
	if _, err := db.GetUserByID(senderID); err != nil {
		return nil, err
	}
	if _, err := db.GetUserByID(receiverID); err != nil {
		return nil, err
	}
	if _, err := db.GetListingByID(listingID); err != nil {
		return nil, err
	}

	message := &models.Message{
		ID:         uuid.New(),
		SenderID:   senderID,
		ReceiverID: receiverID,
		ListingID:  listingID,
		Content:    content,
		CreatedAt:  time.Now().UTC(),
	}

	_, err := db.Exec(
		"INSERT INTO messages (id, sender_id, receiver_id, listing_id, content, created_at) VALUES ($1, $2, $3, $4, $5, $6)",
		message.ID, message.SenderID, message.ReceiverID, message.ListingID, message.Content, message.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return message, nil
}

// GetMessagesByUser returns every message the user sent or received,
// newest first. This is the flat log the conversation view is derived from.
func (db *PostgresDB) GetMessagesByUser(userID uuid.UUID) ([]*models.Message, error) {
	rows, err := db.Query(
		"SELECT id, sender_id, receiver_id, listing_id, content, created_at FROM messages WHERE sender_id = $1 OR receiver_id = $1 ORDER BY created_at DESC",
		userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

// GetListingMessages returns the listing's thread restricted to messages
// the user participates in, oldest first so clients render chronologically
// without re-sorting.
func (db *PostgresDB) GetListingMessages(listingID, userID uuid.UUID) ([]*models.Message, error) {
	rows, err := db.Query(
		`SELECT id, sender_id, receiver_id, listing_id, content, created_at
		FROM messages
		WHERE listing_id = $1 AND (sender_id = $2 OR receiver_id = $2)
		ORDER BY created_at ASC`,
		listingID, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanMessages(rows)
}

func (db *PostgresDB) GetMessageByID(messageID uuid.UUID) (*models.Message, error) {
	var msg models.Message

	err := db.QueryRow(`
		SELECT id, sender_id, receiver_id, listing_id, content, created_at
		FROM messages
		WHERE id = $1`,
		messageID).Scan(
		&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.ListingID,
		&msg.Content, &msg.CreatedAt)

	if err == sql.ErrNoRows {
		return nil, ErrMessageNotFound
	}
	if err != nil {
		return nil, err
	}

	return &msg, nil
}

func scanMessages(rows *sql.Rows) ([]*models.Message, error) {
	var messages []*models.Message
	for rows.Next() {
		var msg models.Message

		err := rows.Scan(&msg.ID, &msg.SenderID, &msg.ReceiverID, &msg.ListingID, &msg.Content, &msg.CreatedAt)
		if err != nil {
			return nil, err
		}

		messages = append(messages, &msg)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return messages, nil
}

// GetUserByID resolves a user to its public projection. The users table is
// owned by the marketplace backend; only the columns needed for
// denormalization are read.
func (db *PostgresDB) GetUserByID(id uuid.UUID) (*models.UserSummary, error) {
	var user models.UserSummary
	err := db.QueryRow(`
		SELECT id, name, email, COALESCE(avatar_url, '')
		FROM users WHERE id = $1`,
		id).Scan(
		&user.ID,
		&user.Name,
		&user.Email,
		&user.AvatarURL,
	)

	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// GetListingByID resolves a listing to its summary; doubles as the
// existence check applied before a message is accepted.
func (db *PostgresDB) GetListingByID(id uuid.UUID) (*models.ListingSummary, error) {
	var listing models.ListingSummary
	err := db.QueryRow(`
		SELECT id, title, COALESCE(image_url, '')
		FROM listings WHERE id = $1`,
		id).Scan(
		&listing.ID,
		&listing.Title,
		&listing.ImageURL,
	)

	if err == sql.ErrNoRows {
		return nil, ErrListingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query listing: %w", err)
	}

	return &listing, nil
}

func (db *PostgresDB) Close() error {
	return db.DB.Close()
}
