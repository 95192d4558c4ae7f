package candles

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
)

type AccountLimiterTestSuite struct {
	suite.Suite
}

func TestAccountLimiterSuite(t *testing.T) {
	suite.Run(t, new(AccountLimiterTestSuite))
}

func (s *AccountLimiterTestSuite) TestFirstCallIsImmediate() {
	l := NewAccountLimiter(time.Second)

	s.Equal(time.Duration(0), l.Reserve(time.Unix(1000, 0)))
}

func (s *AccountLimiterTestSuite) TestSpacesConsecutiveCalls() {
	l := NewAccountLimiter(time.Second)
	now := time.Unix(1000, 0)

	s.Equal(time.Duration(0), l.Reserve(now))
	s.Equal(time.Second, l.Reserve(now))
	s.Equal(2*time.Second, l.Reserve(now))
}

func (s *AccountLimiterTestSuite) TestElapsedTimeConsumesSpacing() {
	l := NewAccountLimiter(time.Second)
	now := time.Unix(1000, 0)

	s.Equal(time.Duration(0), l.Reserve(now))

	// Plenty of wall time passed; the next call owes nothing.
	s.Equal(time.Duration(0), l.Reserve(now.Add(5*time.Second)))
}

func (s *AccountLimiterTestSuite) TestZeroSpacingDisablesLimiting() {
	l := NewAccountLimiter(0)
	now := time.Unix(1000, 0)

	for i := 0; i < 10; i++ {
		s.Equal(time.Duration(0), l.Reserve(now))
	}
}

func (s *AccountLimiterTestSuite) TestConcurrentReservationsGetDistinctSlots() {
	l := NewAccountLimiter(time.Second)
	now := time.Unix(1000, 0)

	const callers = 20

	var (
		wg    sync.WaitGroup
		mu    sync.Mutex
		waits = make(map[time.Duration]int)
	)

	for i := 0; i < callers; i++ {
		wg.Add(1)

		go func() {
			defer wg.Done()

			wait := l.Reserve(now)

			mu.Lock()
			waits[wait]++
			mu.Unlock()
		}()
	}

	wg.Wait()

	// Every caller got its own slot: waits are 0s, 1s, ..., 19s exactly once.
	s.Len(waits, callers)
	for i := 0; i < callers; i++ {
		s.Equal(1, waits[time.Duration(i)*time.Second])
	}
}
