package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/aretw0/conserje/pkg/adapters/memory"
	"github.com/aretw0/conserje/pkg/domain"
)

func TestManager_LocksReleasedAfterTurns(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()

	reply := func(ctx context.Context, req domain.TurnRequest) (*domain.TurnResponse, error) {
		return &domain.TurnResponse{Reply: "ok", State: req.State}, nil
	}
	refuse := func(ctx context.Context, req domain.TurnRequest) (*domain.TurnResponse, error) {
		return nil, errors.New("engine down")
	}

	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sid := fmt.Sprintf("huesped-%d", i%20)
			fn := reply
			if i%7 == 0 {
				fn = refuse
			}
			_, _, _ = mgr.Turn(ctx, sid, "spa", domain.SourceUser, fn)
			if i%5 == 0 {
				_ = mgr.Delete(ctx, sid)
			}
		}(i)
	}
	wg.Wait()

	mgr.mu.Lock()
	defer mgr.mu.Unlock()
	assert.Empty(t, mgr.locks, "per-session locks must be dropped once no turn holds them")
}
