//go:generate go run go.uber.org/mock/mockgen -source=user.go -destination=../mocks/mock_user_repository.go -package=mocks
package repositories

import (
	"encoding/json"
	"errors"

	"github.com/dgraph-io/badger/v4"

	apperrors "wavelink/errors"
	"wavelink/domain"
)

type IUserRepository interface {
	Put(u domain.User) error
	Get(id string) (domain.User, error)
	GetMany(ids []string) (map[string]domain.User, error)
}

// UserRepository is the read-mostly profile directory used to flatten
// sender details into message views. Profile writes come from the CRUD
// surface outside this core.
type UserRepository struct {
	db *badger.DB
}

func NewUserRepository(db *badger.DB) UserRepository {
	return UserRepository{db: db}
}

func (r UserRepository) Put(u domain.User) error {
	return r.db.Update(func(txn *badger.Txn) error {
		return putJSON(txn, userKey(u.ID), u)
	})
}

func (r UserRepository) Get(id string) (domain.User, error) {
	var user domain.User
	err := r.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(userKey(id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return apperrors.ErrUserNotFound
		}
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			return json.Unmarshal(val, &user)
		})
	})
	return user, err
}

// GetMany resolves a batch of profiles. Unknown ids are simply absent
// from the result; callers degrade to a bare id in the view.
func (r UserRepository) GetMany(ids []string) (map[string]domain.User, error) {
	users := make(map[string]domain.User, len(ids))
	err := r.db.View(func(txn *badger.Txn) error {
		for _, id := range ids {
			item, err := txn.Get(userKey(id))
			if errors.Is(err, badger.ErrKeyNotFound) {
				continue
			}
			if err != nil {
				return err
			}
			var user domain.User
			if err := item.Value(func(val []byte) error {
				return json.Unmarshal(val, &user)
			}); err != nil {
				return err
			}
			users[id] = user
		}
		return nil
	})
	return users, err
}
