package fulfillment

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/jhoicas/stock-ledger/internal/domain"
)

// KeyedLocker exclusión mutua por clave (bodega) dentro del proceso. Las entradas se liberan
// cuando no quedan dueños ni esperas.
type KeyedLocker struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem   *semaphore.Weighted
	users int
}

// NewKeyedLocker construye un locker vacío.
func NewKeyedLocker() *KeyedLocker {
	return &KeyedLocker{locks: make(map[string]*keyLock)}
}

// Lock espera la clave hasta timeout (0 = sin límite) o hasta que ctx termine.
// Al vencer el timeout devuelve domain.ErrConcurrentModification; si ctx termina, ctx.Err().
func (l *KeyedLocker) Lock(ctx context.Context, key string, timeout time.Duration) (func(), error) {
	l.mu.Lock()
	kl, ok := l.locks[key]
	if !ok {
		kl = &keyLock{sem: semaphore.NewWeighted(1)}
		l.locks[key] = kl
	}
	kl.users++
	l.mu.Unlock()

	wait := ctx
	if timeout > 0 {
		var cancel context.CancelFunc
		wait, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if err := kl.sem.Acquire(wait, 1); err != nil {
		l.release(key, kl)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, domain.ConcurrentModification("lock warehouse "+key, nil)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			kl.sem.Release(1)
			l.release(key, kl)
		})
	}, nil
}

func (l *KeyedLocker) release(key string, kl *keyLock) {
	l.mu.Lock()
	kl.users--
	if kl.users == 0 {
		delete(l.locks, key)
	}
	l.mu.Unlock()
}

// size número de claves vivas (tests).
func (l *KeyedLocker) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
