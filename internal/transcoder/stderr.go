package transcoder

import (
	"regexp"
	"strconv"
	"time"
)

// tailSize bounds how much ffmpeg output is kept for a failure report.
const tailSize = 8192

var (
	durationRegex = regexp.MustCompile(`Duration: (\d+):(\d+):(\d+)\.(\d+)`)
	timeRegex     = regexp.MustCompile(`time=(\d+):(\d+):(\d+)\.(\d+)`)
)

// splitByNewlineOrCR is a bufio.SplitFunc that also breaks on carriage
// returns, which ffmpeg uses to redraw its status line.
func splitByNewlineOrCR(data []byte, atEOF bool) (advance int, token []byte, err error) {
	for i := 0; i < len(data); i++ {
		if data[i] == '\n' || data[i] == '\r' {
			if i == 0 {
				return 1, nil, nil
			}
			return i + 1, data[:i], nil
		}
	}
	if atEOF && len(data) > 0 {
		return len(data), data, nil
	}
	return 0, nil, nil
}

// tailBuffer keeps the last max bytes of the lines written to it.
type tailBuffer struct {
	max int
	buf []byte
}

func newTailBuffer(max int) *tailBuffer {
	return &tailBuffer{max: max}
}

func (t *tailBuffer) WriteLine(line string) {
	t.buf = append(t.buf, line...)
	t.buf = append(t.buf, '\n')
	if over := len(t.buf) - t.max; over > 0 {
		t.buf = append(t.buf[:0], t.buf[over:]...)
	}
}

func (t *tailBuffer) String() string {
	return string(t.buf)
}

// parseClock converts the submatches of an HH:MM:SS.frac expression.
func parseClock(m []string) time.Duration {
	hours, _ := strconv.Atoi(m[1])
	mins, _ := strconv.Atoi(m[2])
	secs, _ := strconv.Atoi(m[3])

	d := time.Duration(hours)*time.Hour + time.Duration(mins)*time.Minute + time.Duration(secs)*time.Second

	frac := m[4]
	if n, err := strconv.Atoi(frac); err == nil {
		scale := time.Second
		for range frac {
			scale /= 10
		}
		d += time.Duration(n) * scale
	}
	return d
}

// progressParser turns ffmpeg status lines into a completion percentage. The
// input duration comes from the banner ffmpeg prints before encoding starts.
type progressParser struct {
	duration time.Duration
}

// Parse returns the percentage reached by line, if the line reports one.
func (p *progressParser) Parse(line string) (int, bool) {
	if p.duration == 0 {
		if m := durationRegex.FindStringSubmatch(line); m != nil {
			p.duration = parseClock(m)
		}
		return 0, false
	}

	m := timeRegex.FindStringSubmatch(line)
	if m == nil {
		return 0, false
	}

	pct := int(parseClock(m) * 100 / p.duration)
	if pct < 0 {
		pct = 0
	}
	if pct > 100 {
		pct = 100
	}
	return pct, true
}
