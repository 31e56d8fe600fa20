package domain

// Money 통화와 최소 단위 금액
type Money struct {
	Currency string `json:"currency"`
	Amount   int64  `json:"amount"`
}

// Course 강의 카탈로그 항목 (조회 전용 협력자)
type Course struct {
	ID        string
	Title     string
	BasePrice Money
	Published bool
}

// User 사용자 디렉토리 항목 (조회 전용 협력자)
type User struct {
	ID       string
	Email    string
	FullName string
}
