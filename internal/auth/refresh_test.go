package auth

import "testing"

func TestGenerateTokenHashConsistente(t *testing.T) {
	raw, hash, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if raw == "" || hash == "" {
		t.Fatal("token e hash não podem ser vazios")
	}
	if raw == hash {
		t.Fatal("hash não pode ser igual ao token bruto")
	}
	if HashToken(raw) != hash {
		t.Error("HashToken(raw) deveria reproduzir o hash gerado")
	}
}

func TestGenerateTokenUnico(t *testing.T) {
	a, _, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	b, _, err := GenerateToken()
	if err != nil {
		t.Fatalf("GenerateToken: %v", err)
	}
	if a == b {
		t.Fatal("tokens consecutivos não podem colidir")
	}
}

func TestRefreshRedisKey(t *testing.T) {
	if got := RefreshRedisKey("abc"); got != "refresh:painel:abc" {
		t.Errorf("RefreshRedisKey = %q", got)
	}
}

func TestResumoRedisKeyPorUsuario(t *testing.T) {
	// A chave do resumo depende apenas do subject: trocar o access token
	// não muda a chave e, portanto, não rearma o resumo dentro da sessão.
	subject := "2b6df1f9-6f0a-4a3e-9f2a-3f3c6f1f9a10"
	if got := ResumoRedisKey(subject); got != "resumo:"+subject {
		t.Errorf("ResumoRedisKey = %q", got)
	}
}
