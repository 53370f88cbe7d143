package helpers

import (
	"math/rand"
	"strings"
)

// Fuzzer provides utilities for generating adversarial input strings
type Fuzzer struct {
	rnd *rand.Rand
}

// NewFuzzer creates a new Fuzzer with the given seed
func NewFuzzer(seed int64) *Fuzzer {
	return &Fuzzer{
		rnd: rand.New(rand.NewSource(seed)),
	}
}

// FuzzSubredditName generates subreddit names that must never reach the API
func (f *Fuzzer) FuzzSubredditName() []string {
	names := []string{
		// Empty and boundary cases
		"",
		"a",
		"abcdefghijklmnopqrstuv", // One char too long
		strings.Repeat("a", 100),

		// Path traversal
		"../../etc/passwd",
		"golang/../admin",
		"golang%2F..%2Fadmin",

		// Query and fragment injection
		"golang?limit=1000",
		"golang#fragment",
		"golang&after=t3_x",

		// Control characters
		"test\nsubname",
		"test\rsubname",
		"test\x00subname",

		// Unicode
		"тест",
		"golang\u202eadmin",
		"🚀rocket",

		// Leading underscore and separators
		"_test",
		"test-sub",
		"test.sub",
		"test sub",
		"golang+",
		"+golang",
	}
	for i := 0; i < 10; i++ {
		names = append(names, f.GenerateRandomString(5+f.rnd.Intn(10), true)+"/")
	}
	return names
}

// FuzzThingID generates post and comment ids that are not base36
func (f *Fuzzer) FuzzThingID() []string {
	return []string{
		"",
		"ABC123",
		"abc/../def",
		"abc?x=1",
		"abc 123",
		"abc\n123",
		"t1_",
		"t3_abc_def",
		"%00",
	}
}

// FuzzUserAgent generates user agents that would break or inject HTTP headers
func (f *Fuzzer) FuzzUserAgent() []string {
	return []string{
		"",
		"bot\r\nX-Injected: 1",
		"bot\nHost: evil.example",
		strings.Repeat("A", 257),
	}
}

// GenerateRandomString generates a random string of the given length
func (f *Fuzzer) GenerateRandomString(length int, includeSpecial bool) string {
	charset := "abcdefghijklmnopqrstuvwxyz0123456789"
	if includeSpecial {
		charset += "!@#$%^&*()-+=[]{}|;:,.<>?/~"
	}

	var sb strings.Builder
	for i := 0; i < length; i++ {
		sb.WriteByte(charset[f.rnd.Intn(len(charset))])
	}
	return sb.String()
}
