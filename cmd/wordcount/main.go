// Command wordcount runs the word-count MapReduce job over a list of
// input text files and writes R final buckets under -out.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"unicode"

	"github.com/kirontoo/gomr/mr"
)

func main() {
	r := flag.Int("r", 3, "number of reduce buckets")
	workers := flag.Int("workers", 4, "number of concurrent workers")
	out := flag.String("out", "out", "output directory for mr-out-* files")
	checkInterval := flag.Int("check-interval", 10, "seconds between timeout sweeps")
	taskTimeout := flag.Int("task-timeout", 10_000, "task lease timeout in milliseconds")
	flag.Parse()

	inputs := flag.Args()
	if len(inputs) == 0 {
		fmt.Fprintf(os.Stderr, "usage: %s [flags] file1 [file2 ...]\n", os.Args[0])
		os.Exit(1)
	}

	err := mr.RunJob(
		*out, inputs, *r, *workers,
		wordCountMap, wordCountReduce,
		mr.WithCheckInterval(*checkInterval),
		mr.WithTaskTimeout(*taskTimeout),
	)
	if err != nil {
		log.Fatalf("wordcount job failed: %v", err)
	}
	fmt.Printf("done: %d buckets written under %s\n", *r, *out)
}

// wordCountMap lowercases and splits a file's content on runs of
// characters that are neither letters nor digits, emitting (word, "1")
// for every word - the same rule the
// word-count demo this engine supersedes used.
func wordCountMap(_, content string) []mr.Entry {
	var entries []mr.Entry
	for _, word := range strings.FieldsFunc(content, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		entries = append(entries, mr.Entry{Key: strings.ToLower(word), Value: "1"})
	}
	return entries
}

// wordCountReduce sums the decimal counts emitted for a key.
func wordCountReduce(_ string, values []string) string {
	sum := 0
	for _, v := range values {
		n, err := strconv.Atoi(v)
		if err != nil {
			continue
		}
		sum += n
	}
	return strconv.Itoa(sum)
}
