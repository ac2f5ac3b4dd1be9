package notary

import (
	"bufio"
	"errors"
	"strings"
)

// ErrRejected is returned when the notary service explicitly rejects an
// artifact.
var ErrRejected = errors.New("notarization rejected")

// Status is the terminal state of a notarization request.
type Status int

const (
	StatusUnknown Status = iota
	StatusAccepted
	StatusInvalid
)

func (s Status) String() string {
	switch s {
	case StatusAccepted:
		return "Accepted"
	case StatusInvalid:
		return "Invalid"
	}
	return "Unknown"
}

const (
	acceptedMarker = "status: Accepted"
	invalidMarker  = "status: Invalid"
	idMarker       = "id:"
)

// ParseStatus classifies status output. Invalid output returns
// StatusInvalid with ErrRejected; output that is neither accepted nor
// invalid is StatusUnknown without error.
func ParseStatus(output string) (Status, error) {
	switch {
	case strings.Contains(output, invalidMarker):
		return StatusInvalid, ErrRejected
	case strings.Contains(output, acceptedMarker):
		return StatusAccepted, nil
	}
	return StatusUnknown, nil
}

// ParseRequestID scans output line by line for an "id:" marker and returns
// the token that follows it. ok is false when no line carries an
// identifier.
func ParseRequestID(output string) (id string, ok bool) {
	sc := bufio.NewScanner(strings.NewReader(output))
	for sc.Scan() {
		line := sc.Text()
		i := strings.Index(line, idMarker)
		if i < 0 {
			continue
		}
		fields := strings.Fields(line[i+len(idMarker):])
		if len(fields) > 0 {
			return fields[0], true
		}
	}
	return "", false
}
