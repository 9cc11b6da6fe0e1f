package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"fmt"
)

// GenerateToken cria token aleatório seguro e seu hash persistível.
// Serve tanto para refresh tokens quanto para tokens de convite.
func GenerateToken() (raw string, hashed string, err error) {
	buf := make([]byte, 32)
	if _, err = rand.Read(buf); err != nil {
		return "", "", err
	}

	raw = base64.RawURLEncoding.EncodeToString(buf)
	hashed = HashToken(raw)
	return raw, hashed, nil
}

// HashToken produz hash SHA-256 base64.
func HashToken(raw string) string {
	sum := sha256.Sum256([]byte(raw))
	return base64.RawURLEncoding.EncodeToString(sum[:])
}

// RefreshRedisKey monta chave única para guardar estado do refresh.
func RefreshRedisKey(hash string) string {
	return fmt.Sprintf("refresh:painel:%s", hash)
}

// ResumoRedisKey marca a exibição do resumo de boas-vindas na sessão do
// usuário. A chave é por subject, não por token: sobrevive à rotação do
// access token e só volta a valer em um novo login.
func ResumoRedisKey(subject string) string {
	return fmt.Sprintf("resumo:%s", subject)
}
