package main

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/elpatron68/todo-web/internal/backend"
	"github.com/elpatron68/todo-web/internal/config"
)

func TestResolveListenAddress(t *testing.T) {
	cases := []struct {
		name   string
		env    string
		config string
		flag   string
		want   string
	}{
		{name: "nothing set", want: ":8080"},
		{name: "config only", config: "127.0.0.1:9000", want: "127.0.0.1:9000"},
		{name: "TODO_LISTEN beats config", env: "0.0.0.0:7777", config: "127.0.0.1:9000", want: "0.0.0.0:7777"},
		{name: "flag beats everything", env: "0.0.0.0:7777", config: "127.0.0.1:9000", flag: "[::1]:6060", want: "[::1]:6060"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Setenv("TODO_LISTEN", tc.env)
			got := resolveListenAddress(&config.Config{Listen: tc.config}, tc.flag)
			assert.Equal(t, tc.want, got)
		})
	}
	assert.Equal(t, ":8080", resolveListenAddress(nil, ""), "a missing config falls back to the default")
}

func TestOpenMemoryBackend(t *testing.T) {
	st, err := openBackend(context.Background(), config.Default())
	require.NoError(t, err)
	defer st.close()

	assert.Nil(t, st.run, "the memory backend needs no background listener")
	require.NotNil(t, st.users)

	changes := make(chan backend.Change, 1)
	unsub, err := st.notifier.Subscribe(context.Background(), backend.TableTasks, "u1", func(c backend.Change) {
		changes <- c
	})
	require.NoError(t, err)
	defer unsub()

	_, err = st.store.Insert(context.Background(), backend.NewTask{OwnerID: "u1", Title: "Buy milk"})
	require.NoError(t, err)
	select {
	case c := <-changes:
		assert.Equal(t, backend.OpInsert, c.Op)
	default:
		t.Fatal("the memory store should notify its own subscribers")
	}
}
