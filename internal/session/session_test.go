package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"

	"github.com/senpaisaul/multimodal-rag/internal/common"
	"github.com/senpaisaul/multimodal-rag/internal/models"
	"github.com/senpaisaul/multimodal-rag/internal/services/embeddings"
	"github.com/senpaisaul/multimodal-rag/internal/services/index"
)

func newSession(t *testing.T, id, name string) *Session {
	t.Helper()
	svc := index.NewService(embeddings.NewLocalEmbedder(64), nil, &common.RetrievalConfig{TopK: 3}, arbor.NewLogger())
	idx, err := svc.Build(context.Background(), []models.ContentRecord{models.NewTextRecord("Revenue grew in Q2.", 1)})
	require.NoError(t, err)
	return New(id, models.DocumentInfo{Name: name, Pages: 1}, idx)
}

func TestManager_EmptyState(t *testing.T) {
	m := NewManager(arbor.NewLogger())

	_, err := m.Current()
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, m.Clear(), ErrNoSession)
	assert.ErrorIs(t, m.AddTurn("ses_x", models.Turn{Question: "q"}), ErrNoSession)
}

func TestManager_ReplaceSwapsWholeSession(t *testing.T) {
	m := NewManager(arbor.NewLogger())
	first := newSession(t, "ses_1", "a.pdf")
	second := newSession(t, "ses_2", "b.pdf")

	m.Replace(first)
	require.NoError(t, m.AddTurn("ses_1", models.Turn{Question: "first?"}))

	m.Replace(second)
	current, err := m.Current()
	require.NoError(t, err)
	assert.Equal(t, "ses_2", current.ID)
	assert.Equal(t, "b.pdf", current.Document.Name)
	assert.Empty(t, current.History())

	// a late turn for the replaced session is dropped
	assert.ErrorIs(t, m.AddTurn("ses_1", models.Turn{Question: "late"}), ErrNoSession)
	assert.Empty(t, current.History())
}

func TestManager_Clear(t *testing.T) {
	m := NewManager(arbor.NewLogger())
	m.Replace(newSession(t, "ses_1", "a.pdf"))

	require.NoError(t, m.Clear())
	_, err := m.Current()
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSession_HistoryOrderAndTimestamps(t *testing.T) {
	m := NewManager(arbor.NewLogger())
	s := newSession(t, "ses_1", "a.pdf")
	m.Replace(s)

	require.NoError(t, m.AddTurn("ses_1", models.Turn{Question: "one", Answer: "1"}))
	require.NoError(t, m.AddTurn("ses_1", models.Turn{Question: "two", Chart: "Revenue"}))

	history := s.History()
	require.Len(t, history, 2)
	assert.Equal(t, "one", history[0].Question)
	assert.Equal(t, "Revenue", history[1].Chart)
	assert.False(t, history[0].Timestamp.IsZero())

	history[0].Question = "mutated"
	assert.Equal(t, "one", s.History()[0].Question)
}

func TestSession_ConcurrentTurns(t *testing.T) {
	m := NewManager(arbor.NewLogger())
	s := newSession(t, "ses_1", "a.pdf")
	m.Replace(s)

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_ = m.AddTurn("ses_1", models.Turn{Question: "q"})
			_, _ = m.Current()
		}()
	}
	wg.Wait()
	assert.Len(t, s.History(), 20)
}

func TestManager_ReplaceWaitsForInFlightQuery(t *testing.T) {
	ctx := context.Background()
	svc := index.NewService(embeddings.NewLocalEmbedder(64), nil, &common.RetrievalConfig{TopK: 3}, arbor.NewLogger())
	idx, err := svc.Build(ctx, []models.ContentRecord{models.NewTextRecord("Revenue grew in Q2.", 1)})
	require.NoError(t, err)

	m := NewManager(arbor.NewLogger())
	m.Replace(New("ses_1", models.DocumentInfo{Name: "a.pdf"}, idx))

	held, done, err := m.Acquire()
	require.NoError(t, err)

	next := newSession(t, "ses_2", "b.pdf")
	replaced := make(chan struct{})
	go func() {
		m.Replace(next)
		close(replaced)
	}()

	// the new session is visible at once, the old index stays usable
	require.Eventually(t, func() bool {
		current, err := m.Current()
		return err == nil && current.ID == "ses_2"
	}, 2*time.Second, 10*time.Millisecond)

	records, err := svc.Retrieve(ctx, held.Index, "revenue", nil)
	require.NoError(t, err)
	assert.Len(t, records, 1)

	select {
	case <-replaced:
		t.Fatal("Replace returned while a query still held the previous session")
	case <-time.After(50 * time.Millisecond):
	}

	done()
	done() // idempotent
	require.Eventually(t, func() bool {
		select {
		case <-replaced:
			return true
		default:
			return false
		}
	}, 2*time.Second, 10*time.Millisecond)
}

func TestManager_AcquireWithoutSession(t *testing.T) {
	m := NewManager(arbor.NewLogger())
	_, done, err := m.Acquire()
	assert.ErrorIs(t, err, ErrNoSession)
	assert.Nil(t, done)
}
