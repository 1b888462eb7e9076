package generator

// DefaultSystemPrompt asks for formal academic Ukrainian prose without lists.
const DefaultSystemPrompt = "Ти — асистент, що пише академічні тексти українською мовою без списків. " +
	"Усі відповіді мають бути розгорнутими абзацами, зберігати логіку дипломної роботи, " +
	"дотримуватися вказаного обсягу і включати таблиці лише там, де це зазначено."

// DefaultSections returns the diploma catalogue: introduction, three chapters
// with three subsections each, and conclusions. A fresh slice is returned on
// every call so callers cannot mutate the shared catalogue.
func DefaultSections() []SectionSpec {
	return []SectionSpec{
		{"ВСТУП", "Сформуй вступ до дипломної роботи з актуальністю, метою, завданнями та коротким описом методів дослідження."},

		{"РОЗДІЛ 1. Теоретичні засади", "Три абзаци. Поясни контекст теми, сучасний стан досліджень, базові поняття. Без таблиць."},
		{"1.1. Огляд літератури", "Три абзаци з критичним оглядом основних джерел та їх внеском у тему."},
		{"1.2. Аналітична база", "Окресли ключові концепти та підходи. Додай одну таблицю у форматі Markdown з заголовком і трьома рядками даних."},
		{"1.3. Висновки до розділу", "Підсумуй сильні та слабкі сторони наявних досліджень, сформулюй прогалини."},

		{"РОЗДІЛ 2. Методологія", "Опиши загальну логіку методології дослідження трьома абзацами."},
		{"2.1. Методичні підходи", "Розкрий обрані методи та їх обґрунтування."},
		{"2.2. Інструменти та дані", "Опиши дані, інструменти та процедури. Додай одну таблицю у форматі Markdown з заголовком і трьома рядками."},
		{"2.3. Організація дослідження", "Опиши етапи реалізації методології, забезпечення якості даних."},

		{"РОЗДІЛ 3. Результати та впровадження", "Три абзаци про ключові результати та їх інтерпретацію."},
		{"3.1. Основні результати", "Сформулюй результати та їх значення для теми."},
		{"3.2. Практична апробація", "Опиши застосування результатів. Додай одну таблицю у форматі Markdown з заголовком і трьома рядками."},
		{"3.3. Перспективи розвитку", "Опиши подальші напрямки дослідження і можливі поліпшення."},

		{"ВИСНОВКИ", "Підсумуй головні висновки, наукову новизну та практичну цінність роботи."},
	}
}
