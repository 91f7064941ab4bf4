package bot

import (
	"sync"
	"testing"
)

func TestStateStore_DefaultIsIdle(t *testing.T) {
	s := NewStateStore()
	if st := s.Get(1); st.Kind != StateIdle {
		t.Fatalf("fresh chat state = %v, want Idle", st.Kind)
	}
}

func TestStateStore_SetGetClear(t *testing.T) {
	s := NewStateStore()
	ens := "node.eth"
	s.Set(1, State{Kind: StateAwaitingChange, Address: "0xabc", ENS: &ens})

	st := s.Get(1)
	if st.Kind != StateAwaitingChange || st.Address != "0xabc" || st.ENS == nil || *st.ENS != "node.eth" {
		t.Fatalf("unexpected state: %+v", st)
	}

	// Overwrite replaces wholesale.
	s.Set(1, State{Kind: StateAwaitingRegistration})
	if st := s.Get(1); st.Kind != StateAwaitingRegistration || st.Address != "" {
		t.Fatalf("overwrite left stale fields: %+v", st)
	}

	s.Clear(1)
	if st := s.Get(1); st.Kind != StateIdle {
		t.Fatalf("state after Clear = %v, want Idle", st.Kind)
	}
}

func TestStateStore_ConcurrentChatsDoNotInterfere(t *testing.T) {
	s := NewStateStore()

	var wg sync.WaitGroup
	for i := int64(0); i < 50; i++ {
		wg.Add(1)
		go func(chatID int64) {
			defer wg.Done()
			s.Set(chatID, State{Kind: StateAwaitingRegistration})
			s.Set(chatID, State{Kind: StateAwaitingDeleteConfirmation})
			s.Clear(chatID)
			s.Set(chatID, State{Kind: StateAwaitingChange})
		}(i)
	}
	wg.Wait()

	for i := int64(0); i < 50; i++ {
		if st := s.Get(i); st.Kind != StateAwaitingChange {
			t.Fatalf("chat %d state = %v, want AwaitingChange", i, st.Kind)
		}
	}
}
