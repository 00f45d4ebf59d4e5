package harness

import (
	"math/rand"
	"sync"
	"time"

	"github.com/pkg/errors"
	regen "github.com/zach-klippenstein/goregen"
)

// PasswordPattern for generated passwords
const PasswordPattern = `[a-zA-Z0-9]{20}`

var (
	rngLock sync.Mutex
	rng     = rand.New(rand.NewSource(time.Now().UnixNano()))
)

// RandomString generates a string matching pattern
func RandomString(pattern string) (string, error) {
	rngLock.Lock()
	seed := rng.Int63()
	rngLock.Unlock()

	gen, err := regen.NewGenerator(pattern, &regen.GeneratorArgs{
		RngSource: rand.NewSource(seed),
	})
	if err != nil {
		return "", errors.Wrapf(err, "compiling pattern %q", pattern)
	}
	return gen.Generate(), nil
}

// RandomInt in [min, max)
func RandomInt(min, max int) int {
	if max <= min {
		return min
	}
	rngLock.Lock()
	defer rngLock.Unlock()
	return min + rng.Intn(max-min)
}
