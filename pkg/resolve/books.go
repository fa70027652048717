package resolve

import (
	"context"
	"sync"

	"github.com/foomo/hbkbrowser/pkg/expand"
)

// TOCBooks lists the top level toc nodes as known books, by title and by page path.
// The lists are cached per locale, failures are not.
func TOCBooks(loader expand.Loader) BooksFunc {
	var (
		lock  sync.Mutex
		cache = map[string][]string{}
	)
	return func(ctx context.Context, locale string) ([]string, error) {
		lock.Lock()
		books, ok := cache[locale]
		lock.Unlock()
		if ok {
			return books, nil
		}
		roots, err := loader.TOC(ctx, "", 1, locale)
		if err != nil {
			return nil, err
		}
		books = make([]string, 0, 2*len(roots))
		for _, n := range roots {
			books = append(books, n.Title, n.PagePath)
		}
		lock.Lock()
		cache[locale] = books
		lock.Unlock()
		return books, nil
	}
}
