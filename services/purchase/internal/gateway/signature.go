package gateway

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"

	"github.com/coursehub/purchase-service/common/errors"
)

// Verifier 게이트웨이 콜백 서명 검증 인터페이스
type Verifier interface {
	// Verify 서명이 유효하지 않으면 SIGNATURE_MISMATCH 에러 반환
	Verify(payload []byte, signature string) error
}

// HMACVerifier 공유 비밀키 기반 HMAC-SHA256 서명 검증기
type HMACVerifier struct {
	secret []byte
}

// NewHMACVerifier HMAC 서명 검증기 생성
func NewHMACVerifier(secret string) *HMACVerifier {
	return &HMACVerifier{secret: []byte(secret)}
}

// Verify 페이로드 전체에 대한 hex 인코딩 HMAC-SHA256 서명 검증
func (v *HMACVerifier) Verify(payload []byte, signature string) error {
	if signature == "" {
		return errors.New(errors.ErrCodeSignatureMismatch, "missing gateway signature")
	}

	mac := hmac.New(sha256.New, v.secret)
	mac.Write(payload)
	expected := hex.EncodeToString(mac.Sum(nil))

	// 타이밍 공격 방지를 위한 상수 시간 비교
	if !hmac.Equal([]byte(expected), []byte(signature)) {
		return errors.New(errors.ErrCodeSignatureMismatch, "gateway signature verification failed")
	}

	return nil
}
