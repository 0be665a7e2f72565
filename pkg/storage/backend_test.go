package storage

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// backendTestSuite runs the behaviour every Backend must share.
func backendTestSuite(t *testing.T, newBackend func(t *testing.T) Backend) {
	t.Run("CreateBucket", func(t *testing.T) {
		b := newBackend(t)

		require.NoError(t, b.Update(func(tx Tx) error {
			assert.Nil(t, tx.Bucket([]byte("meta")))
			_, err := tx.CreateBucket([]byte("meta"))
			return err
		}))

		require.NoError(t, b.View(func(tx Tx) error {
			assert.NotNil(t, tx.Bucket([]byte("meta")))
			return nil
		}))

		// Creating again keeps the existing contents.
		require.NoError(t, b.Update(func(tx Tx) error {
			bk, err := tx.CreateBucket([]byte("meta"))
			if err != nil {
				return err
			}
			return bk.Put([]byte("k"), []byte("v"))
		}))
		require.NoError(t, b.Update(func(tx Tx) error {
			bk, err := tx.CreateBucket([]byte("meta"))
			require.NoError(t, err)
			assert.Equal(t, []byte("v"), bk.Get([]byte("k")))
			return nil
		}))
	})

	t.Run("PutGet", func(t *testing.T) {
		b := newBackend(t)

		require.NoError(t, b.Update(func(tx Tx) error {
			bk, err := tx.CreateBucket([]byte("aggregates"))
			if err != nil {
				return err
			}
			if err := bk.Put([]byte("Hamburg"), []byte(`{"count":1}`)); err != nil {
				return err
			}
			return bk.Put([]byte("Bulawayo"), []byte(`{"count":2}`))
		}))

		require.NoError(t, b.View(func(tx Tx) error {
			bk := tx.Bucket([]byte("aggregates"))
			require.NotNil(t, bk)
			assert.Equal(t, []byte(`{"count":1}`), bk.Get([]byte("Hamburg")))
			assert.Nil(t, bk.Get([]byte("Palembang")))
			assert.Equal(t, 2, bk.Len())
			return nil
		}))
	})

	t.Run("ForEachSorted", func(t *testing.T) {
		b := newBackend(t)

		keys := []string{"zulu", "alpha", "mike", "bravo"}
		require.NoError(t, b.Update(func(tx Tx) error {
			bk, err := tx.CreateBucket([]byte("keys"))
			if err != nil {
				return err
			}
			for _, k := range keys {
				if err := bk.Put([]byte(k), []byte(k)); err != nil {
					return err
				}
			}
			return nil
		}))

		var seen []string
		require.NoError(t, b.View(func(tx Tx) error {
			return tx.Bucket([]byte("keys")).ForEach(func(k, v []byte) error {
				assert.Equal(t, k, v)
				seen = append(seen, string(k))
				return nil
			})
		}))
		assert.Equal(t, []string{"alpha", "bravo", "mike", "zulu"}, seen)
	})

	t.Run("ForEachStopsOnError", func(t *testing.T) {
		b := newBackend(t)
		stop := errors.New("stop")

		require.NoError(t, b.Update(func(tx Tx) error {
			bk, err := tx.CreateBucket([]byte("keys"))
			if err != nil {
				return err
			}
			for i := range 5 {
				if err := bk.Put(fmt.Appendf(nil, "k%d", i), []byte("x")); err != nil {
					return err
				}
			}
			return nil
		}))

		calls := 0
		err := b.View(func(tx Tx) error {
			return tx.Bucket([]byte("keys")).ForEach(func(k, v []byte) error {
				calls++
				return stop
			})
		})
		assert.ErrorIs(t, err, stop)
		assert.Equal(t, 1, calls)
	})

	t.Run("RollbackOnError", func(t *testing.T) {
		b := newBackend(t)

		require.NoError(t, b.Update(func(tx Tx) error {
			bk, err := tx.CreateBucket([]byte("meta"))
			if err != nil {
				return err
			}
			return bk.Put([]byte("version"), []byte("1"))
		}))

		boom := errors.New("boom")
		err := b.Update(func(tx Tx) error {
			bk := tx.Bucket([]byte("meta"))
			if err := bk.Put([]byte("version"), []byte("2")); err != nil {
				return err
			}
			if _, err := tx.CreateBucket([]byte("aggregates")); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		require.NoError(t, b.View(func(tx Tx) error {
			assert.Equal(t, []byte("1"), tx.Bucket([]byte("meta")).Get([]byte("version")))
			assert.Nil(t, tx.Bucket([]byte("aggregates")))
			return nil
		}))
	})

	t.Run("DeleteBucket", func(t *testing.T) {
		b := newBackend(t)

		require.NoError(t, b.Update(func(tx Tx) error {
			_, err := tx.CreateBucket([]byte("old"))
			return err
		}))
		require.NoError(t, b.Update(func(tx Tx) error {
			if err := tx.DeleteBucket([]byte("old")); err != nil {
				return err
			}
			return tx.DeleteBucket([]byte("never-existed"))
		}))
		require.NoError(t, b.View(func(tx Tx) error {
			assert.Nil(t, tx.Bucket([]byte("old")))
			return nil
		}))
	})

	t.Run("ViewIsReadOnly", func(t *testing.T) {
		b := newBackend(t)

		require.NoError(t, b.Update(func(tx Tx) error {
			_, err := tx.CreateBucket([]byte("meta"))
			return err
		}))

		require.NoError(t, b.View(func(tx Tx) error {
			assert.False(t, tx.Writable())

			_, err := tx.CreateBucket([]byte("other"))
			assert.ErrorIs(t, err, ErrReadOnly)
			assert.ErrorIs(t, tx.DeleteBucket([]byte("meta")), ErrReadOnly)
			assert.ErrorIs(t, tx.Bucket([]byte("meta")).Put([]byte("k"), []byte("v")), ErrReadOnly)
			return nil
		}))
	})

	t.Run("GetReturnsCopy", func(t *testing.T) {
		b := newBackend(t)

		value := []byte("original")
		require.NoError(t, b.Update(func(tx Tx) error {
			bk, err := tx.CreateBucket([]byte("meta"))
			if err != nil {
				return err
			}
			return bk.Put([]byte("k"), value)
		}))
		value[0] = 'X'

		var got []byte
		require.NoError(t, b.View(func(tx Tx) error {
			got = tx.Bucket([]byte("meta")).Get([]byte("k"))
			return nil
		}))
		assert.Equal(t, []byte("original"), got)
	})
}
