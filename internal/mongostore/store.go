package mongostore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/url"
	"strings"
	"time"

	"canvasboard/internal/domain"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// Store keeps boards and nodes in two MongoDB collections. It implements
// both domain.BoardRepository and domain.NodeRepository.
type Store struct {
	client *mongo.Client
	boards *mongo.Collection
	nodes  *mongo.Collection
}

// Connect opens a client for uri. dbName falls back to the database in
// the URI path, then to "canvasboard".
func Connect(ctx context.Context, uri, dbName string) (*Store, error) {
	if dbName == "" {
		dbName = DatabaseFromURI(uri)
	}
	if dbName == "" {
		dbName = "canvasboard"
	}
	log.Printf("[MONGO] Connecting with URI: %s", MaskURI(uri))
	log.Printf("[MONGO] Database: %s", dbName)

	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(clientOpts)
	if err != nil {
		log.Printf("[MONGO] Connect failed: %v", err)
		return nil, fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, nil); err != nil {
		client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	db := client.Database(dbName)
	s := &Store{client: client, boards: db.Collection("boards"), nodes: db.Collection("nodes")}
	_, err = s.nodes.Indexes().CreateOne(ctx, mongo.IndexModel{Keys: bson.D{{Key: "boardId", Value: 1}}})
	if err != nil {
		log.Printf("[MONGO] index boardId: %v", err)
	}
	return s, nil
}

func (s *Store) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}

// ── Documents ──────────────────────────────────────────────

type nodeDoc struct {
	ID          string          `bson:"_id"`
	BoardID     string          `bson:"boardId"`
	Type        string          `bson:"type"`
	Position    domain.Position `bson:"position"`
	Size        domain.Size     `bson:"size"`
	Content     bson.D          `bson:"content"`
	Style       domain.Style    `bson:"style"`
	Locked      bool            `bson:"locked"`
	Connections []string        `bson:"connections"`
	CreatedAt   time.Time       `bson:"createdAt"`
	UpdatedAt   time.Time       `bson:"updatedAt"`
}

// toNodeDoc converts content through extended JSON so the stored document
// keeps the wire field names.
func toNodeDoc(n *domain.Node) (nodeDoc, error) {
	raw, err := json.Marshal(n.Content)
	if err != nil {
		return nodeDoc{}, fmt.Errorf("encode content: %w", err)
	}
	var content bson.D
	if err := bson.UnmarshalExtJSON(raw, false, &content); err != nil {
		return nodeDoc{}, fmt.Errorf("content to bson: %w", err)
	}
	conns := n.Connections
	if conns == nil {
		conns = []string{}
	}
	return nodeDoc{
		ID:          n.ID,
		BoardID:     n.BoardID,
		Type:        string(n.Type),
		Position:    n.Position,
		Size:        n.Size,
		Content:     content,
		Style:       n.Style,
		Locked:      n.Locked,
		Connections: conns,
		CreatedAt:   n.CreatedAt,
		UpdatedAt:   n.UpdatedAt,
	}, nil
}

func fromNodeDoc(d nodeDoc) (*domain.Node, error) {
	content := d.Content
	if content == nil {
		content = bson.D{}
	}
	raw, err := bson.MarshalExtJSON(content, false, false)
	if err != nil {
		return nil, fmt.Errorf("content from bson: %w", err)
	}
	t := domain.NodeType(d.Type)
	c, err := domain.DecodeContent(t, raw)
	if err != nil {
		return nil, fmt.Errorf("node %s: %w", d.ID, err)
	}
	return &domain.Node{
		ID:          d.ID,
		BoardID:     d.BoardID,
		Type:        t,
		Position:    d.Position,
		Size:        d.Size,
		Content:     c,
		Style:       d.Style,
		Locked:      d.Locked,
		Connections: d.Connections,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}, nil
}

type boardDoc struct {
	ID              string               `bson:"_id"`
	Title           string               `bson:"title"`
	Description     string               `bson:"description"`
	BackgroundColor string               `bson:"backgroundColor"`
	GridSize        int                  `bson:"gridSize"`
	Tags            []string             `bson:"tags"`
	Settings        domain.BoardSettings `bson:"settings"`
	CreatedAt       time.Time            `bson:"createdAt"`
	UpdatedAt       time.Time            `bson:"updatedAt"`
}

func toBoardDoc(b *domain.Board) boardDoc {
	tags := b.Tags
	if tags == nil {
		tags = []string{}
	}
	return boardDoc{
		ID: b.ID, Title: b.Title, Description: b.Description, BackgroundColor: b.BackgroundColor,
		GridSize: b.GridSize, Tags: tags, Settings: b.Settings, CreatedAt: b.CreatedAt, UpdatedAt: b.UpdatedAt,
	}
}

func (d boardDoc) board() domain.Board {
	return domain.Board{
		ID: d.ID, Title: d.Title, Description: d.Description, BackgroundColor: d.BackgroundColor,
		GridSize: d.GridSize, Tags: d.Tags, Settings: d.Settings, CreatedAt: d.CreatedAt, UpdatedAt: d.UpdatedAt,
	}
}

// ── Nodes ──────────────────────────────────────────────────

func (s *Store) CreateNode(ctx context.Context, n *domain.Node) error {
	now := time.Now().UTC()
	n.CreatedAt, n.UpdatedAt = now, now
	doc, err := toNodeDoc(n)
	if err != nil {
		return err
	}
	if _, err := s.nodes.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("create node: %w", err)
	}
	return nil
}

func (s *Store) GetNode(ctx context.Context, id string) (*domain.Node, error) {
	var doc nodeDoc
	err := s.nodes.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get node %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get node: %w", err)
	}
	return fromNodeDoc(doc)
}

func (s *Store) ListNodes(ctx context.Context, boardID string) ([]domain.Node, error) {
	opts := options.Find().SetSort(bson.D{{Key: "position.zIndex", Value: 1}, {Key: "createdAt", Value: 1}})
	cur, err := s.nodes.Find(ctx, bson.M{"boardId": boardID}, opts)
	if err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	var docs []nodeDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list nodes: %w", err)
	}
	nodes := make([]domain.Node, 0, len(docs))
	for _, d := range docs {
		n, err := fromNodeDoc(d)
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, *n)
	}
	return nodes, nil
}

func (s *Store) UpdateNode(ctx context.Context, n *domain.Node) error {
	n.UpdatedAt = time.Now().UTC()
	doc, err := toNodeDoc(n)
	if err != nil {
		return err
	}
	res, err := s.nodes.ReplaceOne(ctx, bson.M{"_id": n.ID}, doc)
	if err != nil {
		return fmt.Errorf("update node: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update node %s: %w", n.ID, domain.ErrNotFound)
	}
	return nil
}

// UpdateNodes sends one bulk write of $set operations.
func (s *Store) UpdateNodes(ctx context.Context, nodes []domain.Node) error {
	if len(nodes) == 0 {
		return nil
	}
	models := make([]mongo.WriteModel, 0, len(nodes))
	now := time.Now().UTC()
	for i := range nodes {
		nodes[i].UpdatedAt = now
		doc, err := toNodeDoc(&nodes[i])
		if err != nil {
			return err
		}
		models = append(models, mongo.NewUpdateOneModel().
			SetFilter(bson.M{"_id": doc.ID}).
			SetUpdate(bson.M{"$set": doc}))
	}
	if _, err := s.nodes.BulkWrite(ctx, models); err != nil {
		return fmt.Errorf("bulk update nodes: %w", err)
	}
	return nil
}

func (s *Store) DeleteNode(ctx context.Context, id string) error {
	res, err := s.nodes.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete node: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete node %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteNodesByBoard(ctx context.Context, boardID string) error {
	_, err := s.nodes.DeleteMany(ctx, bson.M{"boardId": boardID})
	return err
}

func (s *Store) DeleteOrphanNodes(ctx context.Context) (int64, error) {
	cur, err := s.boards.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return 0, fmt.Errorf("list board ids: %w", err)
	}
	var ids []struct {
		ID string `bson:"_id"`
	}
	if err := cur.All(ctx, &ids); err != nil {
		return 0, fmt.Errorf("list board ids: %w", err)
	}
	live := make([]string, len(ids))
	for i, d := range ids {
		live[i] = d.ID
	}
	res, err := s.nodes.DeleteMany(ctx, bson.M{"boardId": bson.M{"$nin": live}})
	if err != nil {
		return 0, fmt.Errorf("delete orphan nodes: %w", err)
	}
	return res.DeletedCount, nil
}

// ── Boards ─────────────────────────────────────────────────

func (s *Store) CreateBoard(ctx context.Context, b *domain.Board) error {
	now := time.Now().UTC()
	b.CreatedAt, b.UpdatedAt = now, now
	if _, err := s.boards.InsertOne(ctx, toBoardDoc(b)); err != nil {
		return fmt.Errorf("create board: %w", err)
	}
	return nil
}

func (s *Store) GetBoard(ctx context.Context, id string) (*domain.Board, error) {
	var doc boardDoc
	err := s.boards.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("get board %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get board: %w", err)
	}
	b := doc.board()
	return &b, nil
}

func (s *Store) ListBoards(ctx context.Context) ([]domain.Board, error) {
	cur, err := s.boards.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "updatedAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	var docs []boardDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("list boards: %w", err)
	}
	boards := make([]domain.Board, len(docs))
	for i, d := range docs {
		boards[i] = d.board()
	}
	return boards, nil
}

func (s *Store) UpdateBoard(ctx context.Context, b *domain.Board) error {
	b.UpdatedAt = time.Now().UTC()
	res, err := s.boards.ReplaceOne(ctx, bson.M{"_id": b.ID}, toBoardDoc(b))
	if err != nil {
		return fmt.Errorf("update board: %w", err)
	}
	if res.MatchedCount == 0 {
		return fmt.Errorf("update board %s: %w", b.ID, domain.ErrNotFound)
	}
	return nil
}

func (s *Store) DeleteBoard(ctx context.Context, id string) error {
	res, err := s.boards.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete board: %w", err)
	}
	if res.DeletedCount == 0 {
		return fmt.Errorf("delete board %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

// ── URI helpers ────────────────────────────────────────────

// DatabaseFromURI extracts the database name from the path of a
// mongodb:// or mongodb+srv:// URI.
func DatabaseFromURI(uri string) string {
	rest := uri
	for _, prefix := range []string{"mongodb+srv://", "mongodb://"} {
		if strings.HasPrefix(rest, prefix) {
			rest = rest[len(prefix):]
			break
		}
	}
	if at := strings.LastIndex(rest, "@"); at != -1 {
		rest = rest[at+1:]
	}
	slash := strings.Index(rest, "/")
	if slash == -1 {
		return ""
	}
	path := rest[slash+1:]
	if q := strings.Index(path, "?"); q != -1 {
		path = path[:q]
	}
	return path
}

// MaskURI hides the password of uri for logging.
func MaskURI(uri string) string {
	u, err := url.Parse(uri)
	if err != nil || u.User == nil {
		return uri
	}
	if _, ok := u.User.Password(); !ok {
		return uri
	}
	u.User = url.UserPassword(u.User.Username(), "***")
	return strings.Replace(u.String(), "%2A%2A%2A", "***", 1)
}
