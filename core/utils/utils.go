package utils

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/google/uuid"
)

type ContextKey string

// SliceContains return true if elems contains one of vs
func SliceContains[T comparable](elems []T, vs ...T) bool {
	for _, s := range elems {
		for _, v := range vs {
			if v == s {
				return true
			}
		}
	}
	return false
}

// StringContains return true if s contains one of subs
func StringContains(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

// RunEvery run function now and every t until ctx is done
//
//	go RunEvery(ctx, 2*time.Second, func(){})
func RunEvery(ctx context.Context, t time.Duration, function func()) {
	function()
	c := time.NewTicker(t)
	defer c.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.C:
			function()
		}
	}
}

// GracefulShutdown block until SIGINT/SIGTERM then run f
func GracefulShutdown(f func() error) error {
	s := make(chan os.Signal, 1)
	signal.Notify(s, os.Interrupt, syscall.SIGTERM)
	<-s
	return f()
}

// GenerateUUID return a random v4 uuid
func GenerateUUID() (string, error) {
	u, err := uuid.NewRandom()
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

// GenerateRandomString return a url safe string of s random bytes
func GenerateRandomString(s int) string {
	b, _ := GenerateRandomBytes(s)
	return base64.URLEncoding.EncodeToString(b)
}

// GenerateRandomBytes return n random bytes
func GenerateRandomBytes(n int) ([]byte, error) {
	b := make([]byte, n)
	if _, err := rand.Read(b); err != nil {
		return nil, err
	}
	return b, nil
}
