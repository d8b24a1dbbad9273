package show

import "errors"

// Show ドメインのエラー定義
var (
	ErrShowNotFound     = errors.New("公演が見つかりません")
	ErrShowNameRequired = errors.New("公演名は必須です")
)
