package handlers

import (
	"fmt"
	"sync/atomic"
	"testing"

	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/mocks"
	"github.com/TheWanderer12/Legacy-Family-Tree/internal/domain/services"
)

type handlerEnv struct {
	repo    *mocks.TreeRepository
	index   *mocks.MemberIndex
	search  *services.SearchService
	trees   *TreeHandler
	members *MemberHandler
	imports *ImportHandler
	finder  *SearchHandler
}

func newHandlerEnv(t *testing.T) *handlerEnv {
	t.Helper()
	var next atomic.Int64
	newID := func() string { return fmt.Sprintf("m%d", next.Add(1)) }

	env := &handlerEnv{
		repo:  mocks.NewTreeRepository(),
		index: mocks.NewMemberIndex(),
	}
	embedder := &mocks.Embedder{EmbeddingResult: []float32{0.1, 0.2}}
	env.search = services.NewSearchService(embedder, env.index, env.index, 2)

	locks := services.NewTreeLocks()
	treeService := services.NewTreeService(env.repo, locks, env.search, nil)
	memberService := services.NewMemberService(env.repo, locks, env.search, nil, services.MemberOptions{
		ValidateOnWrite: true,
		NewID:           newID,
	})

	env.trees = NewTreeHandler(treeService)
	env.members = NewMemberHandler(memberService)
	env.imports = NewImportHandler(services.NewImportService(treeService))
	env.finder = NewSearchHandler(treeService, env.search)
	return env
}

func ptr[T any](v T) *T {
	return &v
}
