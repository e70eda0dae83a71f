package worker

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDispatchDueRetriesPublishesClaimedJobs(t *testing.T) {
	store := &stubStore{
		dueRetries: []string{"job-a", "job-b"},
		dispatchClaimed: map[string]bool{
			"job-a": true,
			"job-b": false, // another instance claimed it
		},
	}
	queue := &stubQueue{}
	w := newTestWorker(store, queue, &stubRunner{})

	w.dispatchDueRetries(context.Background())

	require.Len(t, queue.published, 1)

	var msg map[string]string
	require.NoError(t, json.Unmarshal(queue.published[0], &msg))
	assert.Equal(t, "job-a", msg["job_id"])
	assert.Empty(t, store.restored)
}

func TestDispatchDueRetriesRestoresOnPublishFailure(t *testing.T) {
	store := &stubStore{dueRetries: []string{"job-a"}}
	queue := &stubQueue{publishErr: errors.New("broker unavailable")}
	w := newTestWorker(store, queue, &stubRunner{})

	w.dispatchDueRetries(context.Background())

	assert.Equal(t, []string{"job-a"}, store.restored,
		"failed publishes must put the retry schedule back")
}

func TestDispatchDueRetriesToleratesListError(t *testing.T) {
	store := &stubStore{dueRetriesErr: errors.New("connection refused")}
	queue := &stubQueue{}
	w := newTestWorker(store, queue, &stubRunner{})

	w.dispatchDueRetries(context.Background())

	assert.Empty(t, queue.published)
}
