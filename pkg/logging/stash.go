package logging

import (
	"fmt"
	"io"

	"github.com/rs/zerolog"
)

// Stash reads plugin log lines from stderr. A line starting with SOH, a
// level character and STX is shown at that level.
const (
	stashSOH = "\x01"
	stashSTX = "\x02"
)

var stashLevels = map[string]byte{
	zerolog.LevelTraceValue: 't',
	zerolog.LevelDebugValue: 'd',
	zerolog.LevelInfoValue:  'i',
	zerolog.LevelWarnValue:  'w',
	zerolog.LevelErrorValue: 'e',
	zerolog.LevelFatalValue: 'e',
	zerolog.LevelPanicValue: 'e',
}

// stashWriter renders events as plugin log lines: the level marker, the
// message and the fields as key=value.
func stashWriter(out io.Writer) io.Writer {
	return zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    true,
		PartsOrder: []string{zerolog.LevelFieldName, zerolog.MessageFieldName},
		FormatLevel: func(i any) string {
			c, ok := stashLevels[fmt.Sprint(i)]
			if !ok {
				c = 'i'
			}
			return stashSOH + string(c) + stashSTX
		},
	}
}
