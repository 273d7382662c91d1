/*
 * MIT License
 *
 * Copyright (c) 2026 transferd authors
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package auth implements the authorization core: the access/refresh/ share
// token taxonomy and their binary wire format, the in-memory Authorization
// record and its expiry, and the Authorizator's /token and /revoke endpoints.
package auth

import (
	"encoding/base64"
	"encoding/binary"
	"errors"
	"time"

	"github.com/iynaix/filezilla-server-sub001/internal/crypt"
)

// ErrMalformedToken is returned when a decoded token's binary layout does
// not match its expected shape.
var ErrMalformedToken = errors.New("auth: malformed token")

// tokenEncoding is the base64url-without-padding transport encoding used
// for all sealed tokens.
var tokenEncoding = base64.RawURLEncoding

// AccessToken identifies one authorization and the refresh token it was
// minted from.
type AccessToken struct {
	ID        uint64
	RefreshID uint64
}

func (t AccessToken) marshal() []byte {
	b := make([]byte, 16)
	binary.BigEndian.PutUint64(b[0:8], t.ID)
	binary.BigEndian.PutUint64(b[8:16], t.RefreshID)
	return b
}

func unmarshalAccessToken(b []byte) (AccessToken, error) {
	if len(b) != 16 {
		return AccessToken{}, ErrMalformedToken
	}
	return AccessToken{
		ID:        binary.BigEndian.Uint64(b[0:8]),
		RefreshID: binary.BigEndian.Uint64(b[8:16]),
	}, nil
}

// RefreshToken is the long-lived record binding an access token to its
// owning username, an optional scoping path (used by share links to
// narrow a TVFS mount tree) and an expiry.
type RefreshToken struct {
	Access   AccessToken
	Username string
	Path     string
	Expiry   time.Time
}

func (t RefreshToken) marshal() []byte {
	b := make([]byte, 0, 16+2+len(t.Username)+2+len(t.Path)+8)
	b = append(b, t.Access.marshal()...)
	b = appendLenPrefixed(b, t.Username)
	b = appendLenPrefixed(b, t.Path)
	var exp [8]byte
	binary.BigEndian.PutUint64(exp[:], uint64(t.Expiry.Unix()))
	b = append(b, exp[:]...)
	return b
}

func unmarshalRefreshToken(b []byte) (RefreshToken, error) {
	if len(b) < 16 {
		return RefreshToken{}, ErrMalformedToken
	}
	access, err := unmarshalAccessToken(b[:16])
	if err != nil {
		return RefreshToken{}, err
	}
	rest := b[16:]

	username, rest, err := readLenPrefixed(rest)
	if err != nil {
		return RefreshToken{}, err
	}
	path, rest, err := readLenPrefixed(rest)
	if err != nil {
		return RefreshToken{}, err
	}
	if len(rest) != 8 {
		return RefreshToken{}, ErrMalformedToken
	}
	expiry := time.Unix(int64(binary.BigEndian.Uint64(rest)), 0).UTC()

	return RefreshToken{Access: access, Username: username, Path: path, Expiry: expiry}, nil
}

// Equal reports whether two refresh tokens describe the same grant. Expiry is
// compared by instant, so a token decoded off the wire matches the in-memory
// original it was minted from.
func (t RefreshToken) Equal(o RefreshToken) bool {
	return t.Access == o.Access && t.Username == o.Username && t.Path == o.Path && t.Expiry.Equal(o.Expiry)
}

// ShareToken is a refresh token plus an optional password hash.
type ShareToken struct {
	Refresh      RefreshToken
	PasswordHash []byte // nil/empty when the share has no password
}

func (t ShareToken) marshal() []byte {
	rt := t.Refresh.marshal()
	b := make([]byte, 0, 2+len(rt)+2+len(t.PasswordHash))
	b = appendLenPrefixed(b, string(rt))
	b = appendLenPrefixedBytes(b, t.PasswordHash)
	return b
}

func unmarshalShareToken(b []byte) (ShareToken, error) {
	rtBytes, rest, err := readLenPrefixed(b)
	if err != nil {
		return ShareToken{}, err
	}
	rt, err := unmarshalRefreshToken([]byte(rtBytes))
	if err != nil {
		return ShareToken{}, err
	}
	hash, rest, err := readLenPrefixedBytes(rest)
	if err != nil {
		return ShareToken{}, err
	}
	if len(rest) != 0 {
		return ShareToken{}, ErrMalformedToken
	}
	return ShareToken{Refresh: rt, PasswordHash: hash}, nil
}

func appendLenPrefixed(b []byte, s string) []byte {
	return appendLenPrefixedBytes(b, []byte(s))
}

func appendLenPrefixedBytes(b []byte, v []byte) []byte {
	var ln [2]byte
	binary.BigEndian.PutUint16(ln[:], uint16(len(v)))
	b = append(b, ln[:]...)
	return append(b, v...)
}

func readLenPrefixed(b []byte) (string, []byte, error) {
	v, rest, err := readLenPrefixedBytes(b)
	return string(v), rest, err
}

func readLenPrefixedBytes(b []byte) ([]byte, []byte, error) {
	if len(b) < 2 {
		return nil, nil, ErrMalformedToken
	}
	n := int(binary.BigEndian.Uint16(b[0:2]))
	b = b[2:]
	if len(b) < n {
		return nil, nil, ErrMalformedToken
	}
	return b[:n], b[n:], nil
}

// EncodeAccessToken seals and transport-encodes an access token under the
// authorizator's symmetric key.
func EncodeAccessToken(s *crypt.Sealer, t AccessToken) (string, error) {
	sealed, err := s.Seal(t.marshal())
	if err != nil {
		return "", err
	}
	return tokenEncoding.EncodeToString(sealed), nil
}

// DecodeAccessToken reverses EncodeAccessToken.
func DecodeAccessToken(s *crypt.Sealer, encoded string) (AccessToken, error) {
	raw, err := tokenEncoding.DecodeString(encoded)
	if err != nil {
		return AccessToken{}, err
	}
	plain, err := s.Open(raw)
	if err != nil {
		return AccessToken{}, err
	}
	return unmarshalAccessToken(plain)
}

// EncodeRefreshToken seals and transport-encodes a refresh token under the
// token manager's symmetric key.
func EncodeRefreshToken(s *crypt.Sealer, t RefreshToken) (string, error) {
	sealed, err := s.Seal(t.marshal())
	if err != nil {
		return "", err
	}
	return tokenEncoding.EncodeToString(sealed), nil
}

// DecodeRefreshToken reverses EncodeRefreshToken.
func DecodeRefreshToken(s *crypt.Sealer, encoded string) (RefreshToken, error) {
	raw, err := tokenEncoding.DecodeString(encoded)
	if err != nil {
		return RefreshToken{}, err
	}
	plain, err := s.Open(raw)
	if err != nil {
		return RefreshToken{}, err
	}
	return unmarshalRefreshToken(plain)
}

// EncodeShareToken seals and transport-encodes a share token.
func EncodeShareToken(s *crypt.Sealer, t ShareToken) (string, error) {
	sealed, err := s.Seal(t.marshal())
	if err != nil {
		return "", err
	}
	return tokenEncoding.EncodeToString(sealed), nil
}

// DecodeShareToken reverses EncodeShareToken.
func DecodeShareToken(s *crypt.Sealer, encoded string) (ShareToken, error) {
	raw, err := tokenEncoding.DecodeString(encoded)
	if err != nil {
		return ShareToken{}, err
	}
	plain, err := s.Open(raw)
	if err != nil {
		return ShareToken{}, err
	}
	return unmarshalShareToken(plain)
}
