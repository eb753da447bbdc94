package transitions

import (
	"encoding/csv"
	"fmt"
	"os"
	"path"
	"sync"

	"github.com/zeu5/tickrl/types"
	"github.com/zeu5/tickrl/util"
)

const FileName = "transitions.csv"

// FileLogger appends transitions to a csv file in a data folder
type FileLogger struct {
	mu     sync.Mutex
	file   *os.File
	writer *csv.Writer
	closed bool
}

var _ types.TransitionLogger = &FileLogger{}

// NewFileLogger opens dataFolder/transitions.csv for appending.
// The header is only written if the file is new or empty.
func NewFileLogger(dataFolder string) (*FileLogger, error) {
	if err := util.EnsureDir(dataFolder); err != nil {
		return nil, err
	}
	filePath := path.Join(dataFolder, FileName)
	newFile := util.IsEmptyFile(filePath)

	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_WRONLY|os.O_CREATE, 0644)
	if err != nil {
		return nil, fmt.Errorf("opening transition log: %w", err)
	}
	l := &FileLogger{
		file:   f,
		writer: csv.NewWriter(f),
	}
	if newFile {
		if err := l.write(Header); err != nil {
			f.Close()
			return nil, fmt.Errorf("writing header: %w", err)
		}
	}
	return l, nil
}

func (l *FileLogger) write(row []string) error {
	if err := l.writer.Write(row); err != nil {
		return err
	}
	l.writer.Flush()
	return l.writer.Error()
}

// LogTransition writes and flushes one line, ignored after Close
func (l *FileLogger) LogTransition(state types.Observation, action types.Action, reward float64, next types.Observation, done bool) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	return l.write(NewRecord(state, action, reward, next, done).Row())
}

func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.writer.Flush()
	if err := l.writer.Error(); err != nil {
		l.file.Close()
		return err
	}
	return l.file.Close()
}
