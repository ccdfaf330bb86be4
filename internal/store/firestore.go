package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"cloud.google.com/go/firestore"
	firebase "firebase.google.com/go/v4"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"salon-agent/internal/models"
)

var _ Store = (*Firestore)(nil)

// Firestore implements Store on top of Cloud Firestore.
type Firestore struct {
	client *firestore.Client
}

// FirestoreConfig configures the Firestore connection. CredentialsJSON
// takes precedence over CredentialsFile; with neither set, application
// default credentials are used.
type FirestoreConfig struct {
	ProjectID       string
	CredentialsJSON []byte
	CredentialsFile string
}

// NewFirestore connects to Firestore and verifies credentials.
func NewFirestore(ctx context.Context, cfg FirestoreConfig) (*Firestore, error) {
	var opts []option.ClientOption
	switch {
	case len(cfg.CredentialsJSON) > 0:
		opts = append(opts, option.WithCredentialsJSON(cfg.CredentialsJSON))
	case cfg.CredentialsFile != "":
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	var fbCfg *firebase.Config
	if cfg.ProjectID != "" {
		fbCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	app, err := firebase.NewApp(ctx, fbCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("init firebase app: %w", err)
	}

	client, err := app.Firestore(ctx)
	if err != nil {
		return nil, fmt.Errorf("init firestore client: %w", err)
	}

	return &Firestore{client: client}, nil
}

// Close releases the underlying client.
func (f *Firestore) Close() error {
	return f.client.Close()
}

// Ping verifies the backend with a minimal read.
func (f *Firestore) Ping(ctx context.Context) error {
	_, err := f.client.Collection(CollectionCallHistory).Limit(1).Documents(ctx).GetAll()
	return err
}

// retryOnce runs op and retries it a single time when the failure looks
// transient. Anything else surfaces to the caller immediately.
func retryOnce(op func() error) error {
	err := op()
	if err == nil || !isTransient(err) {
		return err
	}
	slog.Warn("transient storage error, retrying once", "error", err)
	return op()
}

func isTransient(err error) bool {
	switch status.Code(err) {
	case codes.Unavailable, codes.DeadlineExceeded, codes.ResourceExhausted:
		return true
	}
	return false
}

func notFound(err error) bool {
	return status.Code(err) == codes.NotFound
}

func (f *Firestore) CreateRequest(ctx context.Context, customerPhone, query, callID, category string) (*models.Request, error) {
	if category == "" {
		category = models.CategoryGeneral
	}

	now := time.Now().UTC()
	req := &models.Request{
		CustomerPhone: customerPhone,
		Query:         query,
		CallID:        callID,
		Status:        models.StatusPending,
		Category:      category,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	ref := f.client.Collection(CollectionRequests).NewDoc()
	if err := retryOnce(func() error {
		_, err := ref.Set(ctx, req)
		return err
	}); err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.ID = ref.ID
	return req, nil
}

func (f *Firestore) GetRequest(ctx context.Context, id string) (*models.Request, error) {
	snap, err := f.client.Collection(CollectionRequests).Doc(id).Get(ctx)
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get request: %w", err)
	}

	var req models.Request
	if err := snap.DataTo(&req); err != nil {
		return nil, fmt.Errorf("decode request %s: %w", snap.Ref.ID, err)
	}
	req.ID = snap.Ref.ID
	return &req, nil
}

func (f *Firestore) ListPendingRequests(ctx context.Context) ([]*models.Request, error) {
	q := f.client.Collection(CollectionRequests).
		Where("status", "==", string(models.StatusPending)).
		OrderBy("created_at", firestore.Asc)
	return f.queryRequests(ctx, q)
}

func (f *Firestore) ListRequestsByStatus(ctx context.Context, statusFilter models.RequestStatus, limit int) ([]*models.Request, error) {
	q := f.client.Collection(CollectionRequests).
		Where("status", "==", string(statusFilter)).
		OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	return f.queryRequests(ctx, q)
}

func (f *Firestore) queryRequests(ctx context.Context, q firestore.Query) ([]*models.Request, error) {
	var snaps []*firestore.DocumentSnapshot
	if err := retryOnce(func() error {
		var err error
		snaps, err = q.Documents(ctx).GetAll()
		return err
	}); err != nil {
		return nil, fmt.Errorf("query requests: %w", err)
	}

	requests := make([]*models.Request, 0, len(snaps))
	for _, snap := range snaps {
		var req models.Request
		if err := snap.DataTo(&req); err != nil {
			slog.Error("skipping undecodable request document", "id", snap.Ref.ID, "error", err)
			continue
		}
		req.ID = snap.Ref.ID
		requests = append(requests, &req)
	}
	return requests, nil
}

func (f *Firestore) ResolveRequest(ctx context.Context, id, answer string) (*models.Request, error) {
	if strings.TrimSpace(answer) == "" {
		return nil, ErrEmptyAnswer
	}

	now := time.Now().UTC()
	return f.finalizeRequest(ctx, id, []firestore.Update{
		{Path: "status", Value: string(models.StatusResolved)},
		{Path: "answer", Value: answer},
		{Path: "resolved_at", Value: now},
		{Path: "updated_at", Value: now},
	})
}

func (f *Firestore) MarkRequestUnresolved(ctx context.Context, id, reason string) (*models.Request, error) {
	if strings.TrimSpace(reason) == "" {
		reason = DefaultUnresolvedReason
	}

	now := time.Now().UTC()
	return f.finalizeRequest(ctx, id, []firestore.Update{
		{Path: "status", Value: string(models.StatusUnresolved)},
		{Path: "unresolved_reason", Value: reason},
		{Path: "updated_at", Value: now},
	})
}

// finalizeRequest applies a terminal status transition inside a transaction
// so only a pending request can move. Resolved and unresolved are terminal.
func (f *Firestore) finalizeRequest(ctx context.Context, id string, updates []firestore.Update) (*models.Request, error) {
	ref := f.client.Collection(CollectionRequests).Doc(id)

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		var req models.Request
		if err := snap.DataTo(&req); err != nil {
			return fmt.Errorf("decode request %s: %w", snap.Ref.ID, err)
		}
		if req.Status != models.StatusPending {
			return ErrAlreadyFinal
		}
		return tx.Update(ref, updates)
	})
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		if errors.Is(err, ErrAlreadyFinal) {
			return nil, ErrAlreadyFinal
		}
		return nil, fmt.Errorf("update request: %w", err)
	}
	return f.GetRequest(ctx, id)
}

func (f *Firestore) HasPendingRequestForCall(ctx context.Context, callID string) (bool, string, error) {
	var snaps []*firestore.DocumentSnapshot
	err := retryOnce(func() error {
		var err error
		snaps, err = f.client.Collection(CollectionRequests).
			Where("call_id", "==", callID).
			Where("status", "==", string(models.StatusPending)).
			Limit(1).
			Documents(ctx).GetAll()
		return err
	})
	if err != nil {
		return false, "", fmt.Errorf("query pending request for call: %w", err)
	}
	if len(snaps) == 0 {
		return false, "", nil
	}
	return true, snaps[0].Ref.ID, nil
}

func (f *Firestore) UpsertKnowledge(ctx context.Context, keyPhrase, question, answer, createdBy string) (*models.KnowledgeEntry, error) {
	keyPhrase = NormalizeKeyPhrase(keyPhrase)
	if keyPhrase == "" || strings.TrimSpace(question) == "" || strings.TrimSpace(answer) == "" {
		return nil, ErrMissingFields
	}

	now := time.Now().UTC()

	var existing []*firestore.DocumentSnapshot
	if err := retryOnce(func() error {
		var err error
		existing, err = f.client.Collection(CollectionKnowledge).
			Where("key_phrase", "==", keyPhrase).
			Limit(1).
			Documents(ctx).GetAll()
		return err
	}); err != nil {
		return nil, fmt.Errorf("lookup knowledge: %w", err)
	}

	if len(existing) > 0 {
		ref := existing[0].Ref
		if err := retryOnce(func() error {
			_, err := ref.Update(ctx, []firestore.Update{
				{Path: "answer", Value: answer},
				{Path: "updated_at", Value: now},
			})
			return err
		}); err != nil {
			return nil, fmt.Errorf("update knowledge: %w", err)
		}

		var entry models.KnowledgeEntry
		if err := existing[0].DataTo(&entry); err != nil {
			return nil, fmt.Errorf("decode knowledge %s: %w", ref.ID, err)
		}
		entry.ID = ref.ID
		entry.Answer = answer
		entry.UpdatedAt = now
		return &entry, nil
	}

	entry := &models.KnowledgeEntry{
		KeyPhrase: keyPhrase,
		Question:  question,
		Answer:    answer,
		CreatedAt: now,
		UpdatedAt: now,
		CreatedBy: createdBy,
	}
	ref := f.client.Collection(CollectionKnowledge).NewDoc()
	if err := retryOnce(func() error {
		_, err := ref.Set(ctx, entry)
		return err
	}); err != nil {
		return nil, fmt.Errorf("create knowledge: %w", err)
	}
	entry.ID = ref.ID
	return entry, nil
}

func (f *Firestore) ListKnowledge(ctx context.Context) ([]*models.KnowledgeEntry, error) {
	var snaps []*firestore.DocumentSnapshot
	if err := retryOnce(func() error {
		var err error
		snaps, err = f.client.Collection(CollectionKnowledge).Documents(ctx).GetAll()
		return err
	}); err != nil {
		return nil, fmt.Errorf("list knowledge: %w", err)
	}

	entries := make([]*models.KnowledgeEntry, 0, len(snaps))
	for _, snap := range snaps {
		var entry models.KnowledgeEntry
		if err := snap.DataTo(&entry); err != nil {
			slog.Error("skipping undecodable knowledge document", "id", snap.Ref.ID, "error", err)
			continue
		}
		entry.ID = snap.Ref.ID
		entries = append(entries, &entry)
	}
	return entries, nil
}

func (f *Firestore) SearchKnowledge(ctx context.Context, query string) ([]*models.KnowledgeEntry, error) {
	entries, err := f.ListKnowledge(ctx)
	if err != nil {
		return nil, err
	}
	return FilterKnowledge(entries, query), nil
}

func (f *Firestore) CreateCall(ctx context.Context, customerPhone string) (*models.CallRecord, error) {
	call := &models.CallRecord{
		CustomerPhone: customerPhone,
		StartTime:     time.Now().UTC(),
		AIHandled:     true,
	}

	ref := f.client.Collection(CollectionCallHistory).NewDoc()
	if err := retryOnce(func() error {
		_, err := ref.Set(ctx, call)
		return err
	}); err != nil {
		return nil, fmt.Errorf("create call: %w", err)
	}

	call.ID = ref.ID
	return call, nil
}

func (f *Firestore) GetCall(ctx context.Context, id string) (*models.CallRecord, error) {
	snap, err := f.client.Collection(CollectionCallHistory).Doc(id).Get(ctx)
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get call: %w", err)
	}

	var call models.CallRecord
	if err := snap.DataTo(&call); err != nil {
		return nil, fmt.Errorf("decode call %s: %w", snap.Ref.ID, err)
	}
	call.ID = snap.Ref.ID
	return &call, nil
}

// CloseCall runs as a transaction so that the disconnect monitor and the
// agent cannot both close the same record: whichever write commits first
// wins, the loser sees the call already closed and leaves it untouched.
func (f *Firestore) CloseCall(ctx context.Context, id string, escalated bool, requestID string) (*models.CallRecord, error) {
	ref := f.client.Collection(CollectionCallHistory).Doc(id)
	var closed models.CallRecord

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		if err := snap.DataTo(&closed); err != nil {
			return fmt.Errorf("decode call %s: %w", snap.Ref.ID, err)
		}
		closed.ID = snap.Ref.ID

		if closed.Closed() {
			// Second close is a no-op.
			return nil
		}

		now := time.Now().UTC()
		duration := int(now.Sub(closed.StartTime).Seconds())
		if duration < 0 {
			duration = 0
		}

		updates := []firestore.Update{
			{Path: "end_time", Value: now},
			{Path: "duration_seconds", Value: duration},
			{Path: "ai_handled", Value: !escalated},
		}
		if requestID != "" {
			updates = append(updates, firestore.Update{Path: "request_id", Value: requestID})
		}
		if err := tx.Update(ref, updates); err != nil {
			return err
		}

		closed.EndTime = &now
		closed.DurationSeconds = duration
		closed.AIHandled = !escalated
		if requestID != "" {
			closed.RequestID = requestID
		}
		return nil
	})
	if err != nil {
		if notFound(err) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("close call: %w", err)
	}
	return &closed, nil
}

func (f *Firestore) ListRecentCalls(ctx context.Context, limit int) ([]*models.CallRecord, error) {
	q := f.client.Collection(CollectionCallHistory).OrderBy("start_time", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	var snaps []*firestore.DocumentSnapshot
	if err := retryOnce(func() error {
		var err error
		snaps, err = q.Documents(ctx).GetAll()
		return err
	}); err != nil {
		return nil, fmt.Errorf("list calls: %w", err)
	}

	calls := make([]*models.CallRecord, 0, len(snaps))
	for _, snap := range snaps {
		var call models.CallRecord
		if err := snap.DataTo(&call); err != nil {
			slog.Error("skipping undecodable call document", "id", snap.Ref.ID, "error", err)
			continue
		}
		call.ID = snap.Ref.ID
		calls = append(calls, &call)
	}
	return calls, nil
}

func (f *Firestore) Stats(ctx context.Context) (*models.Stats, error) {
	pending, err := f.ListPendingRequests(ctx)
	if err != nil {
		return nil, err
	}
	resolved, err := f.ListRequestsByStatus(ctx, models.StatusResolved, 0)
	if err != nil {
		return nil, err
	}
	unresolved, err := f.ListRequestsByStatus(ctx, models.StatusUnresolved, 0)
	if err != nil {
		return nil, err
	}
	calls, err := f.ListRecentCalls(ctx, 0)
	if err != nil {
		return nil, err
	}

	return summarize(len(pending), len(resolved), len(unresolved), calls), nil
}

// NormalizeKeyPhrase lowercases and trims a knowledge key phrase so that
// uniqueness is case-insensitive.
func NormalizeKeyPhrase(keyPhrase string) string {
	return strings.ToLower(strings.TrimSpace(keyPhrase))
}

// minSearchTermLen filters out stopwords like "a" and "at" that would
// otherwise match almost any key phrase.
const minSearchTermLen = 3

// FilterKnowledge returns the entries whose key phrase shares a whole word
// with the query. Short terms are ignored so filler words never match.
func FilterKnowledge(entries []*models.KnowledgeEntry, query string) []*models.KnowledgeEntry {
	var terms []string
	for _, term := range strings.Fields(strings.ToLower(query)) {
		if len(term) >= minSearchTermLen {
			terms = append(terms, term)
		}
	}
	if len(terms) == 0 {
		return nil
	}

	var matched []*models.KnowledgeEntry
	for _, entry := range entries {
		words := make(map[string]struct{})
		for _, w := range strings.Fields(strings.ToLower(entry.KeyPhrase)) {
			words[w] = struct{}{}
		}
		for _, term := range terms {
			if _, ok := words[term]; ok {
				matched = append(matched, entry)
				break
			}
		}
	}
	return matched
}

func summarize(pending, resolved, unresolved int, calls []*models.CallRecord) *models.Stats {
	total := len(calls)
	handled := 0
	for _, c := range calls {
		if c.AIHandled {
			handled++
		}
	}

	pct := 0.0
	if total > 0 {
		pct = math.Round(float64(handled)/float64(total)*1000) / 10
	}

	return &models.Stats{
		PendingCount:    pending,
		ResolvedCount:   resolved,
		UnresolvedCount: unresolved,
		AIHandledPct:    pct,
		TotalCalls:      total,
	}
}
