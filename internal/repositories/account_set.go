package repositories

import "repurposer/internal/models"

// AccountSet is the in-memory working copy used during a Mutate cycle. It keeps
// file order and an index by canonical email.
type AccountSet struct {
	accounts []*models.Account
	index    map[string]int
	dropped  int
	dirty    bool
}

func NewAccountSet(accounts []*models.Account) *AccountSet {
	s := &AccountSet{
		accounts: make([]*models.Account, 0, len(accounts)),
		index:    make(map[string]int, len(accounts)),
	}
	for _, a := range accounts {
		key := NormalizeEmail(a.Email)
		if _, seen := s.index[key]; seen {
			s.dropped++
			continue
		}
		s.index[key] = len(s.accounts)
		s.accounts = append(s.accounts, a)
	}
	return s
}

// Get returns the live record for email, or nil. Callers that modify it must
// call Touch.
func (s *AccountSet) Get(email string) *models.Account {
	i, ok := s.index[NormalizeEmail(email)]
	if !ok {
		return nil
	}
	return s.accounts[i]
}

func (s *AccountSet) Has(email string) bool {
	_, ok := s.index[NormalizeEmail(email)]
	return ok
}

// Add appends a record, rejecting a second record for the same canonical email.
func (s *AccountSet) Add(a *models.Account) error {
	key := NormalizeEmail(a.Email)
	if _, ok := s.index[key]; ok {
		return ErrDuplicateEmail
	}
	a.Email = key
	s.index[key] = len(s.accounts)
	s.accounts = append(s.accounts, a)
	s.dirty = true
	return nil
}

// Remove deletes the record for email and reports whether one existed.
func (s *AccountSet) Remove(email string) bool {
	key := NormalizeEmail(email)
	i, ok := s.index[key]
	if !ok {
		return false
	}
	s.accounts = append(s.accounts[:i], s.accounts[i+1:]...)
	delete(s.index, key)
	for k, idx := range s.index {
		if idx > i {
			s.index[k] = idx - 1
		}
	}
	s.dirty = true
	return true
}

// Rename moves a record to a new canonical email.
func (s *AccountSet) Rename(oldEmail, newEmail string) error {
	oldKey, newKey := NormalizeEmail(oldEmail), NormalizeEmail(newEmail)
	i, ok := s.index[oldKey]
	if !ok {
		return ErrAccountNotFound
	}
	if oldKey == newKey {
		return nil
	}
	if _, taken := s.index[newKey]; taken {
		return ErrDuplicateEmail
	}
	delete(s.index, oldKey)
	s.index[newKey] = i
	s.accounts[i].Email = newKey
	s.dirty = true
	return nil
}

// All returns the records in file order.
func (s *AccountSet) All() []*models.Account {
	out := make([]*models.Account, len(s.accounts))
	copy(out, s.accounts)
	return out
}

func (s *AccountSet) Len() int { return len(s.accounts) }

func (s *AccountSet) Touch() { s.dirty = true }

func (s *AccountSet) Dirty() bool { return s.dirty }

// Dropped is the number of records discarded because their email duplicated
// an earlier one.
func (s *AccountSet) Dropped() int { return s.dropped }
