package pkg

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"
)

var ErrInvalidID = errors.New("invalid id")

// PathID reads a positive integer id from the mux route variable.
func PathID(r *http.Request, name string) (int, error) {
	idStr := mux.Vars(r)[name]
	if idStr == "" {
		return 0, ErrInvalidID
	}
	id, err := strconv.Atoi(idStr)
	if err != nil || id <= 0 {
		return 0, ErrInvalidID
	}
	return id, nil
}
