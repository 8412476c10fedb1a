package app

const (
	msgHelp = "🎓 ربات ثبت‌نام جشن فارغ‌التحصیلی\n\n" +
		"/start شروع ثبت‌نام یا ویرایش اطلاعات\n" +
		"/cancel لغو عملیات جاری\n" +
		"/help راهنما"

	msgUseStart        = "برای ثبت‌نام /start را بزنید."
	msgNothingToCancel = "عملیاتی برای لغو وجود ندارد. برای ثبت‌نام /start را بزنید."
	msgAdminOnly       = "⛔️ این دستور فقط برای مدیران است."
	msgSlowDown        = "⏳ لطفاً کمی صبر کنید و دوباره تلاش کنید."
	msgTextOnly        = "لطفاً پاسخ را به صورت متن بفرستید."
	msgRosterEmpty     = "هنوز کسی ثبت‌نام نکرده است."
	msgRosterFailed    = "⚠️ خواندن فهرست ثبت‌نام‌ها ممکن نشد."
)
