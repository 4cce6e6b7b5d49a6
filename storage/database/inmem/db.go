package inmemdb

import (
	"sync"

	"github.com/aminofabian/squlll/core/academic"
)

type (
	DB struct {
		session *sessionTable
	}

	sessionTable struct {
		table map[string]*academic.State
		mutex sync.RWMutex
	}
)

func Open() *DB {
	return &DB{
		session: &sessionTable{table: make(map[string]*academic.State)},
	}
}
