package apierror

// Machine error codes returned in the "code" field of error responses.
const (
	CodeUnknown               = 900
	CodeInvalidRequest        = 901
	CodeSystemGeneralError    = 1000
	CodeRoleNotSupported      = 1001
	CodeUserNotPermission     = 1002
	CodeUserNotExistOrBlocked = 1003
)

// User-facing messages paired with the codes above.
const (
	MessageInvalidRequest        = "Yêu cầu không đúng, mời bạn thử lại!"
	MessageSystemGeneralError    = "Có lỗi xẩy ra mời bạn thử lại."
	MessageUserNotPermission     = "Bạn không có quyền thực hiện chức năng này."
	MessageUserNotExistOrBlocked = "Người dùng không tồn tại hoặc bị khóa"
)
