package mysql

// Statements are assembled from validated identifiers only; values always
// travel as placeholders.
const (
	insertSQL = "INSERT INTO `%s` (%s) VALUES (%s)"
	selectSQL = "SELECT * FROM `%s`"
	updateSQL = "UPDATE `%s` SET %s"
	whereSQL  = " WHERE %s"
)

// ER_BAD_FIELD_ERROR: the statement named a column the table lacks.
const errBadFieldError = 1054
