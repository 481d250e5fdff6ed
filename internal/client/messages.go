package client

import "net/http"

const (
	MessageTimeout = "요청 시간이 초과되었습니다. 인터넷 연결을 확인하고 다시 시도해주세요."
	MessageNetwork = "네트워크 연결에 문제가 있습니다. 인터넷 연결을 확인해주세요."
	MessageUnknown = "알 수 없는 오류가 발생했습니다. 다시 시도해주세요."
)

var statusMessages = map[int]string{
	http.StatusBadRequest:          "잘못된 요청입니다. 입력 정보를 확인해주세요.",
	http.StatusUnauthorized:        "인증이 필요합니다.",
	http.StatusForbidden:           "접근 권한이 없습니다.",
	http.StatusNotFound:            "요청한 서비스를 찾을 수 없습니다.",
	http.StatusTooManyRequests:     "너무 많은 요청이 발생했습니다. 잠시 후 다시 시도해주세요.",
	http.StatusInternalServerError: "서버 내부 오류가 발생했습니다. 잠시 후 다시 시도해주세요.",
	http.StatusBadGateway:          "서버가 일시적으로 사용할 수 없습니다. 잠시 후 다시 시도해주세요.",
	http.StatusServiceUnavailable:  "서버가 일시적으로 사용할 수 없습니다. 잠시 후 다시 시도해주세요.",
	http.StatusGatewayTimeout:      "서버가 일시적으로 사용할 수 없습니다. 잠시 후 다시 시도해주세요.",
}

const defaultStatusMessage = "서버 오류가 발생했습니다. 잠시 후 다시 시도해주세요."

// StatusMessage returns the localized message for a non-2xx status.
func StatusMessage(status int) string {
	if msg, ok := statusMessages[status]; ok {
		return msg
	}
	return defaultStatusMessage
}
