package service

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mailminder/internal/model"
)

type fakeMessageSource struct {
	messages      []model.Message
	requestedSize int
}

func (f *fakeMessageSource) ListUnclassified(ctx context.Context, accountID, limit int) ([]model.Message, error) {
	f.requestedSize = limit
	if limit < len(f.messages) {
		return f.messages[:limit], nil
	}
	return f.messages, nil
}

func (f *fakeMessageSource) Get(ctx context.Context, id string) (*model.Message, *string, error) {
	for i := range f.messages {
		if f.messages[i].ID == id {
			return &f.messages[i], nil, nil
		}
	}
	return nil, nil, nil
}

type fakeRecordSink struct {
	batches [][]*model.Classification
	singles []*model.Classification
	err     error
}

func (f *fakeRecordSink) Upsert(ctx context.Context, c *model.Classification) error {
	if f.err != nil {
		return f.err
	}
	f.singles = append(f.singles, c)
	return nil
}

func (f *fakeRecordSink) UpsertAll(ctx context.Context, records []*model.Classification) error {
	if f.err != nil {
		return f.err
	}
	f.batches = append(f.batches, records)
	return nil
}

// fakeEngine labels every message "Work" except the ids in failIDs,
// which fail with a transient error.
type fakeEngine struct {
	failIDs    map[string]bool
	prepareErr error
	prepared   int
}

func (f *fakeEngine) PrepareEnv(ctx context.Context, userID int) (*ClassifyEnv, error) {
	if f.prepareErr != nil {
		return nil, f.prepareErr
	}
	f.prepared++
	return &ClassifyEnv{}, nil
}

func (f *fakeEngine) Classify(ctx context.Context, msg *model.Message, env *ClassifyEnv) (*model.Classification, error) {
	if f.failIDs[msg.ID] {
		return nil, errors.New("classifier gateway unreachable")
	}
	return &model.Classification{
		MessageID:  msg.ID,
		FinalLabel: "Work",
		DecidedBy:  model.DecidedConsensus,
	}, nil
}

func someMessages(n int) []model.Message {
	msgs := make([]model.Message, n)
	base := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	for i := range msgs {
		d := base.Add(-time.Duration(i) * time.Hour)
		msgs[i] = model.Message{
			ID:        fmt.Sprintf("msg-%03d", i),
			AccountID: 1,
			FromEmail: "sender@example.com",
			Date:      &d,
		}
	}
	return msgs
}

func TestClassifyNewCommitsOneBatch(t *testing.T) {
	source := &fakeMessageSource{messages: someMessages(5)}
	sink := &fakeRecordSink{}
	engine := &fakeEngine{}

	o := NewOrchestrator(source, sink, engine, 20, zap.NewNop())
	count, err := o.ClassifyNew(context.Background(), 1, 7)

	require.NoError(t, err)
	assert.Equal(t, 5, count)
	assert.Equal(t, 20, source.requestedSize)
	require.Len(t, sink.batches, 1, "all records must land in a single commit")
	assert.Len(t, sink.batches[0], 5)
	assert.Equal(t, 1, engine.prepared, "environment prepared once per run")
}

func TestClassifyNewSkipsFailedMessages(t *testing.T) {
	source := &fakeMessageSource{messages: someMessages(4)}
	sink := &fakeRecordSink{}
	engine := &fakeEngine{failIDs: map[string]bool{"msg-001": true, "msg-003": true}}

	o := NewOrchestrator(source, sink, engine, 20, zap.NewNop())
	count, err := o.ClassifyNew(context.Background(), 1, 7)

	require.NoError(t, err, "per-message failures must not abort the batch")
	assert.Equal(t, 2, count)
	require.Len(t, sink.batches, 1)
	for _, rec := range sink.batches[0] {
		assert.NotContains(t, []string{"msg-001", "msg-003"}, rec.MessageID)
	}
}

func TestClassifyNewHonorsBatchBound(t *testing.T) {
	source := &fakeMessageSource{messages: someMessages(50)}
	sink := &fakeRecordSink{}

	o := NewOrchestrator(source, sink, &fakeEngine{}, 20, zap.NewNop())
	count, err := o.ClassifyNew(context.Background(), 1, 7)

	require.NoError(t, err)
	assert.Equal(t, 20, count)
}

func TestClassifyNewEmptyBacklogIsNoop(t *testing.T) {
	source := &fakeMessageSource{}
	sink := &fakeRecordSink{}
	engine := &fakeEngine{}

	o := NewOrchestrator(source, sink, engine, 20, zap.NewNop())
	count, err := o.ClassifyNew(context.Background(), 1, 7)

	require.NoError(t, err)
	assert.Equal(t, 0, count)
	assert.Empty(t, sink.batches)
	assert.Equal(t, 0, engine.prepared, "no environment work for an empty backlog")
}

func TestClassifyNewPrepareFailureAbortsRun(t *testing.T) {
	source := &fakeMessageSource{messages: someMessages(3)}
	sink := &fakeRecordSink{}
	engine := &fakeEngine{prepareErr: errors.New("whitelist query failed")}

	o := NewOrchestrator(source, sink, engine, 20, zap.NewNop())
	count, err := o.ClassifyNew(context.Background(), 1, 7)

	require.Error(t, err)
	assert.Equal(t, 0, count)
	assert.Empty(t, sink.batches)
}

func TestClassifyNewCommitFailureReturnsError(t *testing.T) {
	source := &fakeMessageSource{messages: someMessages(3)}
	sink := &fakeRecordSink{err: errors.New("connection refused")}

	o := NewOrchestrator(source, sink, &fakeEngine{}, 20, zap.NewNop())
	count, err := o.ClassifyNew(context.Background(), 1, 7)

	require.Error(t, err)
	assert.Equal(t, 0, count)
}

func TestClassifyMessage(t *testing.T) {
	source := &fakeMessageSource{messages: someMessages(2)}
	sink := &fakeRecordSink{}

	o := NewOrchestrator(source, sink, &fakeEngine{}, 20, zap.NewNop())

	rec, err := o.ClassifyMessage(context.Background(), "msg-001", 7)
	require.NoError(t, err)
	assert.Equal(t, "msg-001", rec.MessageID)
	assert.Len(t, sink.singles, 1)

	_, err = o.ClassifyMessage(context.Background(), "missing", 7)
	assert.ErrorIs(t, err, ErrMessageNotFound)
}
