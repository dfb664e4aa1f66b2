// text.go -- read from a variety of text files and populate a DBWriter
//
// (c) Sudhi Herle 2018
//
// License GPLv2
//
// If you need a commercial license for this work, please contact
// the author.
//
// This software does not come with any express or implied
// warranty; it is provided "as is". No claim  is made to its
// suitability for any purpose.

package main

import (
	"bufio"
	"encoding/csv"
	"io"
	"os"
	"strings"

	"github.com/opencoff/go-bdzmph"
	"github.com/opencoff/go-fasthash"
)

type record struct {
	key []byte
	val []byte
}

// AddTextFile adds contents from text file 'fn' where key and value are
// separated by one of the characters in 'delim'.
func AddTextFile(w *bdzmph.DBWriter, fn string, delim string) (uint64, error) {
	fd, err := os.Open(fn)
	if err != nil {
		return 0, err
	}

	if len(delim) == 0 {
		delim = " \t"
	}

	defer fd.Close()

	return AddTextStream(w, fd, delim)
}

// AddTextStream adds contents from text stream 'fd' where key and value are
// separated by one of the characters in 'delim'. Empty lines and comments
// (lines starting with '#') are skipped.
func AddTextStream(w *bdzmph.DBWriter, fd io.Reader, delim string) (uint64, error) {
	rd := bufio.NewReader(fd)
	sc := bufio.NewScanner(rd)
	ch := make(chan *record, 10)

	go func(sc *bufio.Scanner, ch chan *record) {
		var empty string

		for sc.Scan() {
			s := strings.TrimSpace(sc.Text())
			if len(s) == 0 || s[0] == '#' {
				continue
			}

			var k, v string

			i := strings.IndexAny(s, delim)
			if i > 0 {
				k = s[:i]
				v = strings.TrimSpace(s[i:])
			} else {
				k = s
				v = empty
			}

			if len(v) >= 4294967295 {
				continue
			}

			ch <- makeRecord(k, v)
		}

		close(ch)
	}(sc, ch)

	return addFromChan(w, ch)
}

// AddCSVFile adds contents from CSV file 'fn'.
func AddCSVFile(w *bdzmph.DBWriter, fn string, comma, comment rune, kwfield, valfield int) (uint64, error) {
	fd, err := os.Open(fn)
	if err != nil {
		return 0, err
	}

	defer fd.Close()

	return AddCSVStream(w, fd, comma, comment, kwfield, valfield)
}

// AddCSVStream adds contents from a CSV stream. kwfield/valfield are the
// field indices of the key and value, defaulting to 0 and 1.
func AddCSVStream(w *bdzmph.DBWriter, fd io.Reader, comma, comment rune, kwfield, valfield int) (uint64, error) {
	if kwfield < 0 {
		kwfield = 0
	}
	if valfield < 0 {
		valfield = 1
	}

	max := valfield
	if kwfield > valfield {
		max = kwfield
	}
	max++

	ch := make(chan *record, 10)
	cr := csv.NewReader(fd)
	cr.Comma = comma
	cr.Comment = comment
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.ReuseRecord = true

	go func(cr *csv.Reader, ch chan *record) {
		for {
			v, err := cr.Read()
			if err != nil {
				break
			}

			if len(v) < max {
				continue
			}

			ch <- makeRecord(v[kwfield], v[valfield])
		}
		close(ch)
	}(cr, ch)

	return addFromChan(w, ch)
}

// addFromChan reads records off ch and writes them to w, skipping any whose
// fasthash fingerprint was already seen in this run -- a cheap first-pass
// filter ahead of DBWriter's own (authoritative, exact-key) duplicate
// check, so a large input with many repeats doesn't pay for a full key copy
// on every repeated line.
func addFromChan(w *bdzmph.DBWriter, ch chan *record) (uint64, error) {
	seen := make(map[uint64]struct{})

	var n uint64
	for r := range ch {
		fp := fasthash.Hash64(0, r.key)
		if _, dup := seen[fp]; dup {
			continue
		}
		seen[fp] = struct{}{}

		if err := w.Add(r.key, r.val); err != nil {
			if err == bdzmph.ErrExists {
				continue
			}
			return n, err
		}
		n++
	}

	return n, nil
}

func makeRecord(key, val string) *record {
	return &record{key: []byte(key), val: []byte(val)}
}
