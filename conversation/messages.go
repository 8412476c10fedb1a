package conversation

import "fmt"

// User-facing texts, in the language of the event.
const (
	msgWelcome = "🎓 به ربات تلگرامی جشن فارغ‌التحصیلی بهمن ۹۷ خوش آمدید\n" +
		"لطفاً اسم خود را وارد نمایید:"
	msgAskStudentID     = "لطفاً کد دانشجویی خود را وارد نمایید:"
	msgAskGuestCount    = "لطفاً تعداد افرادی که می‌خواهید همراه خود بیاورید را وارد کنید یا بنویسید «نامشخص»:"
	msgAskNewName       = "لطفاً نام جدید خود را وارد کنید:"
	msgAskNewGuestCount = "لطفاً تعداد جدید همراهان را وارد کنید یا بنویسید «نامشخص»:"
	msgUnchanged        = "✅ اطلاعات قبلی بدون تغییر باقی ماند."
	msgUpdated          = "✅ اطلاعات شما با موفقیت ویرایش شد."
	msgRegistered       = "✅ اطلاعات شما با موفقیت ثبت شد."
	msgRowMissing       = "خطا: ردیف پیدا نشد."
	msgJustRegistered   = "⚠️ خطا: کد دانشجویی شما در همین لحظه ثبت شده است."
	msgCancelled        = "❌ عملیات لغو شد."
	msgStoreFailure     = "⚠️ خطایی در ذخیره‌سازی اطلاعات رخ داد. لطفاً بعداً دوباره /start را بزنید."

	// NoChoice is the negative reply button.
	NoChoice = "خیر ❌"
)

func msgAlreadyRegistered(name, guestCount string) string {
	return fmt.Sprintf("⚠️ این کد دانشجویی قبلاً ثبت شده است:\n\n"+
		"نام: %s\n"+
		"تعداد همراهان: %s\n\n"+
		"آیا مایل به ویرایش اطلاعات هستید؟", name, guestCount)
}
